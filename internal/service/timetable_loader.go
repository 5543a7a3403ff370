package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

type classSnapshotReader interface {
	ListForRun(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) ([]models.Class, error)
}

type courseSnapshotReader interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Course, error)
	ListClassCourses(ctx context.Context, exec sqlx.ExtContext, classIDs []int64) ([]models.ClassCourse, error)
	ListCourseFaculty(ctx context.Context, exec sqlx.ExtContext) ([]models.CourseFaculty, error)
}

type facultySnapshotReader interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Faculty, error)
}

type classroomSnapshotReader interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Classroom, error)
}

type timeSlotSnapshotReader interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.TimeSlot, error)
}

type retainedEntryReader interface {
	ListRetained(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) ([]models.TimetableEntry, error)
}

// SnapshotLoader assembles the reference data of one generation run.
type SnapshotLoader struct {
	classes  classSnapshotReader
	courses  courseSnapshotReader
	faculty  facultySnapshotReader
	rooms    classroomSnapshotReader
	slots    timeSlotSnapshotReader
	retained retainedEntryReader
}

// NewSnapshotLoader constructs a loader.
func NewSnapshotLoader(classes classSnapshotReader, courses courseSnapshotReader, faculty facultySnapshotReader, rooms classroomSnapshotReader, slots timeSlotSnapshotReader, retained retainedEntryReader) *SnapshotLoader {
	return &SnapshotLoader{
		classes:  classes,
		courses:  courses,
		faculty:  faculty,
		rooms:    rooms,
		slots:    slots,
		retained: retained,
	}
}

// Load reads every table the engine needs. Pass the run transaction as exec so
// the snapshot and the write see the same data.
func (l *SnapshotLoader) Load(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) (scheduler.Snapshot, error) {
	var snapshot scheduler.Snapshot
	var err error

	if snapshot.Classes, err = l.classes.ListForRun(ctx, exec, filter); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load classes: %w", err)
	}
	classIDs := make([]int64, 0, len(snapshot.Classes))
	for _, class := range snapshot.Classes {
		classIDs = append(classIDs, class.ID)
	}
	if len(classIDs) > 0 {
		if snapshot.ClassCourses, err = l.courses.ListClassCourses(ctx, exec, classIDs); err != nil {
			return scheduler.Snapshot{}, fmt.Errorf("load class courses: %w", err)
		}
	}
	if snapshot.Courses, err = l.courses.List(ctx, exec); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load courses: %w", err)
	}
	if snapshot.CourseFaculty, err = l.courses.ListCourseFaculty(ctx, exec); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load course faculty: %w", err)
	}
	if snapshot.Faculty, err = l.faculty.List(ctx, exec); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load faculty: %w", err)
	}
	if snapshot.Rooms, err = l.rooms.List(ctx, exec); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load classrooms: %w", err)
	}
	if snapshot.Slots, err = l.slots.List(ctx, exec); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load time slots: %w", err)
	}
	if snapshot.Retained, err = l.retained.ListRetained(ctx, exec, filter); err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("load retained entries: %w", err)
	}
	return snapshot, nil
}
