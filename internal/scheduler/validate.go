package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Violation rules reported by Validate.
const (
	RuleUnknownReference  = "UNKNOWN_REFERENCE"
	RuleClassClash        = "CLASS_CLASH"
	RuleFacultyClash      = "FACULTY_CLASH"
	RuleRoomClash         = "ROOM_CLASH"
	RuleFacultyOverload   = "FACULTY_OVERLOAD"
	RuleFacultyIneligible = "FACULTY_NOT_ELIGIBLE"
	RuleCourseNotRequired = "COURSE_NOT_REQUIRED"
	RuleRoomType          = "ROOM_TYPE"
	RuleRoomCapacity      = "ROOM_CAPACITY"
	RuleBreakSlot         = "BREAK_SLOT"
	RuleLabNotContiguous  = "LAB_NOT_CONTIGUOUS"
	RuleLabBlockSize      = "LAB_BLOCK_SIZE"
)

// Violation describes one entry set breaking a timetable invariant.
type Violation struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Entry   *models.TimetableEntry `json:"entry,omitempty"`
}

// Validate checks entries for the snapshot's classes against every timetable
// invariant, counting the snapshot's retained entries as already booked.
// The error is non-nil only when the snapshot itself is invalid.
func Validate(snapshot Snapshot, entries []models.TimetableEntry) ([]Violation, error) {
	cat, err := newCatalog(snapshot)
	if err != nil {
		return nil, err
	}
	index, loads, err := seedState(cat, snapshot)
	if err != nil {
		return nil, err
	}

	violations := []Violation{}
	add := func(rule string, entry *models.TimetableEntry, format string, args ...interface{}) {
		violations = append(violations, Violation{Rule: rule, Message: fmt.Sprintf(format, args...), Entry: entry})
	}

	type assignment struct {
		classID    int64
		courseCode string
	}
	type commitment struct {
		facultyID  int64
		classID    int64
		courseCode string
	}
	assigned := make(map[assignment]struct{})
	counted := make(map[commitment]struct{})
	labSlots := make(map[assignment][]slotInfo)
	var order []assignment

	for i := range entries {
		entry := &entries[i]
		class, okClass := cat.classByID[entry.ClassID]
		course, okCourse := cat.courses[entry.CourseCode]
		_, okFaculty := cat.faculty[entry.FacultyID]
		room, okRoom := cat.roomByNo[entry.RoomNo]
		slot, okSlot := cat.slotByID[entry.SlotID]
		if !okClass || !okCourse || !okFaculty || !okRoom || !okSlot {
			add(RuleUnknownReference, entry, "entry references unknown class, course, faculty, room or slot")
			continue
		}

		if err := index.Occupy(entry.ClassID, entry.FacultyID, entry.RoomNo, entry.SlotID); err != nil {
			add(clashRule(err), entry, "%v", err)
		}
		if slot.slot.IsBreak {
			add(RuleBreakSlot, entry, "slot %d is a break", entry.SlotID)
		}
		if room.Type != course.RoomType() {
			add(RuleRoomType, entry, "course %s needs a %s room, %s is %s", course.Code, course.RoomType(), room.RoomNo, room.Type)
		}
		if room.Capacity < class.StudentCount {
			add(RuleRoomCapacity, entry, "room %s seats %d, class %d has %d students", room.RoomNo, room.Capacity, class.ID, class.StudentCount)
		}
		if !containsString(cat.classCourses[class.ID], course.Code) {
			add(RuleCourseNotRequired, entry, "class %d does not take course %s", class.ID, course.Code)
		}
		if !containsInt64(cat.eligible[course.Code], entry.FacultyID) {
			add(RuleFacultyIneligible, entry, "faculty %d is not mapped to course %s", entry.FacultyID, course.Code)
		}

		key := assignment{entry.ClassID, entry.CourseCode}
		if _, seen := assigned[key]; !seen {
			assigned[key] = struct{}{}
			order = append(order, key)
		}
		load := commitment{entry.FacultyID, entry.ClassID, entry.CourseCode}
		if _, done := counted[load]; !done {
			counted[load] = struct{}{}
			if err := loads.AddHours(entry.FacultyID, course.HoursPerWeek); err != nil {
				add(RuleFacultyOverload, entry, "%v", err)
			}
		}
		if course.Type == models.CourseTypeLab {
			labSlots[key] = append(labSlots[key], slot)
		}
	}

	for _, key := range order {
		slots, ok := labSlots[key]
		if !ok {
			continue
		}
		course := cat.courses[key.courseCode]
		if want := requiredSlots(course.HoursPerWeek); len(slots) != want {
			add(RuleLabBlockSize, nil, "lab course %s for class %d has %d slots, needs %d", key.courseCode, key.classID, len(slots), want)
		}
		sort.Slice(slots, func(i, j int) bool { return slotBefore(slots[i], slots[j]) })
		if !contiguous(slots) || !adjacentInDay(cat, slots) {
			add(RuleLabNotContiguous, nil, "lab course %s for class %d is not one contiguous block", key.courseCode, key.classID)
		}
	}
	return violations, nil
}

// adjacentInDay reports whether the slots follow each other in the day's
// non-break ordering.
func adjacentInDay(cat *catalog, slots []slotInfo) bool {
	if len(slots) < 2 {
		return true
	}
	for _, day := range cat.days {
		if day[0].day != slots[0].day {
			continue
		}
		for i, info := range day {
			if info.slot.ID != slots[0].slot.ID {
				continue
			}
			if i+len(slots) > len(day) {
				return false
			}
			for k := range slots {
				if day[i+k].slot.ID != slots[k].slot.ID {
					return false
				}
			}
			return true
		}
	}
	return false
}

func clashRule(err error) string {
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		return RuleClassClash
	}
	switch conflict.Dimension {
	case DimensionFaculty:
		return RuleFacultyClash
	case DimensionRoom:
		return RuleRoomClash
	default:
		return RuleClassClash
	}
}
