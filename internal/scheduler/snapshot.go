package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ErrInvalidSnapshot marks reference data a run must not proceed with.
var ErrInvalidSnapshot = errors.New("invalid reference snapshot")

// Snapshot is the read-only reference data handed to one generation run.
// Classes holds only the classes being regenerated. Retained holds the
// entries that survive the run (other semesters) and still occupy faculty
// and rooms.
type Snapshot struct {
	Classes       []models.Class
	Courses       []models.Course
	ClassCourses  []models.ClassCourse
	CourseFaculty []models.CourseFaculty
	Faculty       []models.Faculty
	Rooms         []models.Classroom
	Slots         []models.TimeSlot
	Retained      []models.TimetableEntry
}

// Validate fails closed when the snapshot cannot support a run.
func (s Snapshot) Validate() error {
	_, err := newCatalog(s)
	return err
}

type slotInfo struct {
	slot  models.TimeSlot
	day   int
	start int
	end   int
}

// catalog is the indexed form of a snapshot.
type catalog struct {
	classes      []models.Class
	classByID    map[int64]models.Class
	courses      map[string]models.Course
	faculty      map[int64]models.Faculty
	classCourses map[int64][]string
	eligible     map[string][]int64
	rooms        []models.Classroom
	roomByNo     map[string]models.Classroom
	slots        []slotInfo
	slotByID     map[int64]slotInfo
	days         [][]slotInfo
}

func newCatalog(s Snapshot) (*catalog, error) {
	if len(s.Slots) == 0 {
		return nil, fmt.Errorf("%w: no time slots defined", ErrInvalidSnapshot)
	}
	if len(s.Rooms) == 0 {
		return nil, fmt.Errorf("%w: no classrooms defined", ErrInvalidSnapshot)
	}

	c := &catalog{
		classByID:    make(map[int64]models.Class, len(s.Classes)),
		courses:      make(map[string]models.Course, len(s.Courses)),
		faculty:      make(map[int64]models.Faculty, len(s.Faculty)),
		classCourses: make(map[int64][]string),
		eligible:     make(map[string][]int64),
		roomByNo:     make(map[string]models.Classroom, len(s.Rooms)),
		slotByID:     make(map[int64]slotInfo, len(s.Slots)),
	}

	for _, class := range s.Classes {
		if _, dup := c.classByID[class.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate class %d", ErrInvalidSnapshot, class.ID)
		}
		c.classByID[class.ID] = class
		c.classes = append(c.classes, class)
	}
	sort.Slice(c.classes, func(i, j int) bool { return c.classes[i].ID < c.classes[j].ID })

	for _, course := range s.Courses {
		if _, dup := c.courses[course.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate course %s", ErrInvalidSnapshot, course.Code)
		}
		if !course.Type.Valid() {
			return nil, fmt.Errorf("%w: course %s has unknown type %q", ErrInvalidSnapshot, course.Code, course.Type)
		}
		if course.HoursPerWeek <= 0 {
			return nil, fmt.Errorf("%w: course %s must require at least one weekly hour", ErrInvalidSnapshot, course.Code)
		}
		c.courses[course.Code] = course
	}

	for _, fac := range s.Faculty {
		if _, dup := c.faculty[fac.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate faculty %d", ErrInvalidSnapshot, fac.ID)
		}
		c.faculty[fac.ID] = fac
	}

	for _, room := range s.Rooms {
		if _, dup := c.roomByNo[room.RoomNo]; dup {
			return nil, fmt.Errorf("%w: duplicate classroom %s", ErrInvalidSnapshot, room.RoomNo)
		}
		c.roomByNo[room.RoomNo] = room
		c.rooms = append(c.rooms, room)
	}

	for _, mapping := range s.ClassCourses {
		if _, ok := c.courses[mapping.CourseCode]; !ok {
			return nil, fmt.Errorf("%w: class %d requires unknown course %s", ErrInvalidSnapshot, mapping.ClassID, mapping.CourseCode)
		}
		if _, ok := c.classByID[mapping.ClassID]; !ok {
			continue
		}
		if containsString(c.classCourses[mapping.ClassID], mapping.CourseCode) {
			continue
		}
		c.classCourses[mapping.ClassID] = append(c.classCourses[mapping.ClassID], mapping.CourseCode)
	}

	for _, mapping := range s.CourseFaculty {
		if _, ok := c.faculty[mapping.FacultyID]; !ok {
			return nil, fmt.Errorf("%w: course %s maps to unknown faculty %d", ErrInvalidSnapshot, mapping.CourseCode, mapping.FacultyID)
		}
		if containsInt64(c.eligible[mapping.CourseCode], mapping.FacultyID) {
			continue
		}
		c.eligible[mapping.CourseCode] = append(c.eligible[mapping.CourseCode], mapping.FacultyID)
	}

	for _, slot := range s.Slots {
		if _, dup := c.slotByID[slot.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate time slot %d", ErrInvalidSnapshot, slot.ID)
		}
		info, err := describeSlot(slot)
		if err != nil {
			return nil, err
		}
		c.slotByID[slot.ID] = info
		c.slots = append(c.slots, info)
	}
	sort.Slice(c.slots, func(i, j int) bool { return slotBefore(c.slots[i], c.slots[j]) })

	for _, info := range c.slots {
		if info.slot.IsBreak {
			continue
		}
		if n := len(c.days); n == 0 || c.days[n-1][0].day != info.day {
			c.days = append(c.days, []slotInfo{info})
			continue
		}
		c.days[len(c.days)-1] = append(c.days[len(c.days)-1], info)
	}

	return c, nil
}

func describeSlot(slot models.TimeSlot) (slotInfo, error) {
	day := slot.DayIndex()
	if day == 0 {
		return slotInfo{}, fmt.Errorf("%w: time slot %d has unknown day %q", ErrInvalidSnapshot, slot.ID, slot.DayOfWeek)
	}
	start, err := slot.StartMinutes()
	if err != nil {
		return slotInfo{}, fmt.Errorf("%w: time slot %d: %v", ErrInvalidSnapshot, slot.ID, err)
	}
	end, err := slot.EndMinutes()
	if err != nil {
		return slotInfo{}, fmt.Errorf("%w: time slot %d: %v", ErrInvalidSnapshot, slot.ID, err)
	}
	if end <= start {
		return slotInfo{}, fmt.Errorf("%w: time slot %d ends before it starts", ErrInvalidSnapshot, slot.ID)
	}
	return slotInfo{slot: slot, day: day, start: start, end: end}, nil
}

// slotBefore orders slots by day, then start time, then id.
func slotBefore(a, b slotInfo) bool {
	if a.day != b.day {
		return a.day < b.day
	}
	if a.start != b.start {
		return a.start < b.start
	}
	return a.slot.ID < b.slot.ID
}

// coursesFor returns the class's courses in scheduling order: labs first,
// then heavier weekly load first, then course code.
func (c *catalog) coursesFor(classID int64) []models.Course {
	codes := c.classCourses[classID]
	courses := make([]models.Course, 0, len(codes))
	for _, code := range codes {
		courses = append(courses, c.courses[code])
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		if a.Type != b.Type {
			return a.Type == models.CourseTypeLab
		}
		if a.HoursPerWeek != b.HoursPerWeek {
			return a.HoursPerWeek > b.HoursPerWeek
		}
		return a.Code < b.Code
	})
	return courses
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func containsInt64(items []int64, target int64) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
