package scheduler

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

// courseAllocator places one course of one class.
type courseAllocator struct {
	cat        *catalog
	loads      *LoadTracker
	heuristics Heuristics
	strategies map[models.CourseType]slotStrategy
}

func newCourseAllocator(cat *catalog, index *AvailabilityIndex, loads *LoadTracker, heuristics Heuristics) *courseAllocator {
	return &courseAllocator{
		cat:        cat,
		loads:      loads,
		heuristics: heuristics,
		strategies: map[models.CourseType]slotStrategy{
			models.CourseTypeLab:    &labStrategy{cat: cat, index: index},
			models.CourseTypeTheory: &theoryStrategy{cat: cat, index: index},
		},
	}
}

// Allocate returns the entries placed for the pair and at most one warning.
// A non-nil error is a consistency failure and aborts the run.
func (a *courseAllocator) Allocate(class models.Class, course models.Course) ([]models.TimetableEntry, *Warning, error) {
	facultyID, warning := a.pickFaculty(class, course)
	if warning != nil {
		return nil, warning, nil
	}

	rooms := a.suitableRooms(class, course)
	if len(rooms) == 0 {
		return nil, newWarning(WarningNoSuitableRoom, class, course,
			fmt.Sprintf("no %s room seats %d students for course %s", course.RoomType(), class.StudentCount, course.Code)), nil
	}

	needed := requiredSlots(course.HoursPerWeek)
	entries, err := a.strategies[course.Type].allocate(slotRequest{
		class:     class,
		course:    course,
		facultyID: facultyID,
		rooms:     rooms,
		needed:    needed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("allocate course %s for class %d: %w", course.Code, class.ID, err)
	}
	if len(entries) == 0 {
		msg := fmt.Sprintf("no free slot for course %s", course.Code)
		if course.Type == models.CourseTypeLab {
			msg = fmt.Sprintf("no free block of %d consecutive slots for lab course %s", needed, course.Code)
		}
		return nil, newWarning(WarningNoAvailableSlot, class, course, msg), nil
	}

	if err := a.loads.AddHours(facultyID, course.HoursPerWeek); err != nil {
		return nil, nil, fmt.Errorf("allocate course %s for class %d: %w", course.Code, class.ID, err)
	}
	if len(entries) < needed {
		return entries, newWarning(WarningPartialAllocation, class, course,
			fmt.Sprintf("only allocated %d/%d slots for course %s", len(entries), needed, course.Code)), nil
	}
	return entries, nil, nil
}

func (a *courseAllocator) pickFaculty(class models.Class, course models.Course) (int64, *Warning) {
	eligible := append([]int64(nil), a.cat.eligible[course.Code]...)
	if len(eligible) == 0 {
		return 0, newWarning(WarningNoEligibleFaculty, class, course,
			fmt.Sprintf("no faculty assigned to course %s", course.Code))
	}
	a.heuristics.sortFaculty(eligible, a.loads)
	for _, id := range eligible {
		if a.loads.RemainingCapacity(id) >= course.HoursPerWeek {
			return id, nil
		}
	}
	return 0, newWarning(WarningNoEligibleFaculty, class, course,
		fmt.Sprintf("no faculty available with %d free hours for course %s", course.HoursPerWeek, course.Code))
}

func (a *courseAllocator) suitableRooms(class models.Class, course models.Course) []models.Classroom {
	want := course.RoomType()
	var rooms []models.Classroom
	for _, room := range a.cat.rooms {
		if room.Type == want && room.Capacity >= class.StudentCount {
			rooms = append(rooms, room)
		}
	}
	a.heuristics.sortRooms(rooms)
	return rooms
}

func newWarning(kind WarningKind, class models.Class, course models.Course, message string) *Warning {
	return &Warning{Kind: kind, ClassID: class.ID, CourseCode: course.Code, Message: message}
}
