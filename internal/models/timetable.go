package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableEntry books one class, course, faculty member and room into one slot.
type TimetableEntry struct {
	ClassID    int64  `db:"class_id" json:"classId"`
	CourseCode string `db:"course_code" json:"courseCode"`
	FacultyID  int64  `db:"fac_id" json:"facultyId"`
	RoomNo     string `db:"room_no" json:"roomNo"`
	SlotID     int64  `db:"slot_id" json:"slotId"`
}

// TimetableView is an entry joined with the descriptive columns shown to users.
type TimetableView struct {
	ID          int64      `db:"id" json:"id"`
	ClassID     int64      `db:"class_id" json:"classId"`
	Section     string     `db:"sec" json:"section"`
	Year        int        `db:"year" json:"year"`
	Semester    int        `db:"sem" json:"semester"`
	CourseCode  string     `db:"course_code" json:"courseCode"`
	CourseName  string     `db:"course_name" json:"courseName"`
	CourseType  CourseType `db:"course_type" json:"courseType"`
	FacultyID   int64      `db:"fac_id" json:"facultyId"`
	FacultyName string     `db:"fac_name" json:"facultyName"`
	RoomNo      string     `db:"room_no" json:"roomNo"`
	RoomType    RoomType   `db:"room_type" json:"roomType"`
	SlotID      int64      `db:"slot_id" json:"slotId"`
	DayOfWeek   string     `db:"day_of_week" json:"dayOfWeek"`
	StartTime   Clock      `db:"start_time" json:"startTime"`
	EndTime     Clock      `db:"end_time" json:"endTime"`
}

// TimetableRunStatus captures the outcome of a generation run.
type TimetableRunStatus string

const (
	TimetableRunStatusQueued    TimetableRunStatus = "QUEUED"
	TimetableRunStatusSucceeded TimetableRunStatus = "SUCCEEDED"
	TimetableRunStatusFailed    TimetableRunStatus = "FAILED"
)

// TimetableRun is the persisted log line of one generation run.
type TimetableRun struct {
	ID               string             `db:"id" json:"id"`
	Semester         int                `db:"semester" json:"semester"`
	Year             *int               `db:"year" json:"year,omitempty"`
	Status           TimetableRunStatus `db:"status" json:"status"`
	ClassesProcessed int                `db:"classes_processed" json:"classesProcessed"`
	CoursesScheduled int                `db:"courses_scheduled" json:"coursesScheduled"`
	CoursesSkipped   int                `db:"courses_skipped" json:"coursesSkipped"`
	EntriesCreated   int                `db:"entries_created" json:"entriesCreated"`
	Warnings         types.JSONText     `db:"warnings" json:"warnings"`
	Error            *string            `db:"error" json:"error,omitempty"`
	DurationMS       int64              `db:"duration_ms" json:"durationMs"`
	CreatedAt        time.Time          `db:"created_at" json:"createdAt"`
}

// TimetableRunFilter paginates the run log.
type TimetableRunFilter struct {
	Semester *int
	Page     int
	PageSize int
}
