// Package csvio reads a reference snapshot from CSV files and writes
// generated entries back out, for running the engine without a database.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// File names expected in a snapshot directory.
const (
	ClassesFile       = "classes.csv"
	CoursesFile       = "courses.csv"
	ClassCoursesFile  = "class_courses.csv"
	CourseFacultyFile = "course_faculty.csv"
	FacultyFile       = "faculty.csv"
	ClassroomsFile    = "classrooms.csv"
	TimeSlotsFile     = "time_slots.csv"
	RetainedFile      = "retained_entries.csv"
)

type classRow struct {
	ClassID  int64  `csv:"class_id"`
	Section  string `csv:"sec"`
	Year     int    `csv:"year"`
	Semester int    `csv:"sem"`
	Students int    `csv:"nos"`
}

type courseRow struct {
	Code    string `csv:"course_code"`
	Name    string `csv:"course_name"`
	Credits int    `csv:"credits"`
	Type    string `csv:"course_type"`
	Hours   int    `csv:"hours_week"`
}

type classCourseRow struct {
	ClassID    int64  `csv:"class_id"`
	CourseCode string `csv:"course_code"`
}

type courseFacultyRow struct {
	CourseCode string `csv:"course_code"`
	FacultyID  int64  `csv:"fac_id"`
}

type facultyRow struct {
	ID          int64  `csv:"fac_id"`
	Name        string `csv:"fac_name"`
	Designation string `csv:"design"`
	MaxHours    int    `csv:"max_hours_week"`
}

type classroomRow struct {
	RoomNo   string `csv:"room_no"`
	Type     string `csv:"room_type"`
	Capacity int    `csv:"capacity"`
}

type timeSlotRow struct {
	ID      int64  `csv:"slot_id"`
	Day     string `csv:"day_of_week"`
	Start   string `csv:"start_time"`
	End     string `csv:"end_time"`
	IsLab   bool   `csv:"is_lab"`
	IsBreak bool   `csv:"is_break"`
}

// EntryRow is one timetable entry as stored on disk.
type EntryRow struct {
	ClassID    int64  `csv:"class_id"`
	CourseCode string `csv:"course_code"`
	FacultyID  int64  `csv:"fac_id"`
	RoomNo     string `csv:"room_no"`
	SlotID     int64  `csv:"slot_id"`
}

// Loader reads snapshot files from one directory.
type Loader struct {
	dir   string
	comma rune
}

// NewLoader builds a loader for dir. A zero comma selects ','.
func NewLoader(dir string, comma rune) *Loader {
	if comma == 0 {
		comma = ','
	}
	return &Loader{dir: dir, comma: comma}
}

// LoadSnapshot reads every snapshot file and keeps the classes selected by
// filter. retained_entries.csv is optional.
func (l *Loader) LoadSnapshot(filter models.ClassFilter) (scheduler.Snapshot, error) {
	var snapshot scheduler.Snapshot

	var classes []classRow
	if err := l.read(ClassesFile, &classes, true); err != nil {
		return snapshot, err
	}
	selected := make(map[int64]struct{})
	for _, row := range classes {
		if row.Semester != filter.Semester || (filter.Year != nil && row.Year != *filter.Year) {
			continue
		}
		selected[row.ClassID] = struct{}{}
		snapshot.Classes = append(snapshot.Classes, models.Class{
			ID:           row.ClassID,
			Section:      strings.TrimSpace(row.Section),
			Year:         row.Year,
			Semester:     row.Semester,
			StudentCount: row.Students,
		})
	}

	var courses []courseRow
	if err := l.read(CoursesFile, &courses, true); err != nil {
		return snapshot, err
	}
	for _, row := range courses {
		snapshot.Courses = append(snapshot.Courses, models.Course{
			Code:         strings.TrimSpace(row.Code),
			Name:         strings.TrimSpace(row.Name),
			Credits:      row.Credits,
			Type:         models.CourseType(strings.ToUpper(strings.TrimSpace(row.Type))),
			HoursPerWeek: row.Hours,
		})
	}

	var classCourses []classCourseRow
	if err := l.read(ClassCoursesFile, &classCourses, true); err != nil {
		return snapshot, err
	}
	for _, row := range classCourses {
		if _, ok := selected[row.ClassID]; !ok {
			continue
		}
		snapshot.ClassCourses = append(snapshot.ClassCourses, models.ClassCourse{
			ClassID:    row.ClassID,
			CourseCode: strings.TrimSpace(row.CourseCode),
		})
	}

	var courseFaculty []courseFacultyRow
	if err := l.read(CourseFacultyFile, &courseFaculty, true); err != nil {
		return snapshot, err
	}
	for _, row := range courseFaculty {
		snapshot.CourseFaculty = append(snapshot.CourseFaculty, models.CourseFaculty{
			CourseCode: strings.TrimSpace(row.CourseCode),
			FacultyID:  row.FacultyID,
		})
	}

	var faculty []facultyRow
	if err := l.read(FacultyFile, &faculty, true); err != nil {
		return snapshot, err
	}
	for _, row := range faculty {
		snapshot.Faculty = append(snapshot.Faculty, models.Faculty{
			ID:           row.ID,
			Name:         strings.TrimSpace(row.Name),
			Designation:  strings.TrimSpace(row.Designation),
			MaxHoursWeek: row.MaxHours,
		})
	}

	var rooms []classroomRow
	if err := l.read(ClassroomsFile, &rooms, true); err != nil {
		return snapshot, err
	}
	for _, row := range rooms {
		snapshot.Rooms = append(snapshot.Rooms, models.Classroom{
			RoomNo:   strings.TrimSpace(row.RoomNo),
			Type:     models.RoomType(strings.ToUpper(strings.TrimSpace(row.Type))),
			Capacity: row.Capacity,
		})
	}

	var slots []timeSlotRow
	if err := l.read(TimeSlotsFile, &slots, true); err != nil {
		return snapshot, err
	}
	for _, row := range slots {
		snapshot.Slots = append(snapshot.Slots, models.TimeSlot{
			ID:        row.ID,
			DayOfWeek: strings.TrimSpace(row.Day),
			StartTime: models.Clock(strings.TrimSpace(row.Start)),
			EndTime:   models.Clock(strings.TrimSpace(row.End)),
			IsLab:     row.IsLab,
			IsBreak:   row.IsBreak,
		})
	}

	var retained []EntryRow
	if err := l.read(RetainedFile, &retained, false); err != nil {
		return snapshot, err
	}
	for _, row := range retained {
		if _, ok := selected[row.ClassID]; ok {
			continue
		}
		snapshot.Retained = append(snapshot.Retained, row.entry())
	}
	return snapshot, nil
}

func (l *Loader) read(name string, out interface{}, required bool) error {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = l.comma
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (r EntryRow) entry() models.TimetableEntry {
	return models.TimetableEntry{
		ClassID:    r.ClassID,
		CourseCode: strings.TrimSpace(r.CourseCode),
		FacultyID:  r.FacultyID,
		RoomNo:     strings.TrimSpace(r.RoomNo),
		SlotID:     r.SlotID,
	}
}
