// Package scheduler implements the greedy timetable generation engine.
//
// A run takes a read-only Snapshot, walks classes in id order and their
// courses in scheduling order, and books each course into (faculty, room,
// slot) triples through an AvailabilityIndex and a LoadTracker that live only
// for that run. The engine performs no I/O; callers persist the Result.
package scheduler

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Summary counts what a run did.
type Summary struct {
	ClassesProcessed int `json:"classesProcessed"`
	CoursesScheduled int `json:"coursesScheduled"`
	CoursesSkipped   int `json:"coursesSkipped"`
}

// Result is the full output of a run.
type Result struct {
	Entries  []models.TimetableEntry `json:"entries"`
	Warnings []Warning               `json:"warnings"`
	Summary  Summary                 `json:"summary"`
}

// Engine runs generation with a fixed set of heuristics.
type Engine struct {
	heuristics Heuristics
}

// NewEngine builds an engine. Unknown heuristic values fall back to defaults.
func NewEngine(heuristics Heuristics) *Engine {
	return &Engine{heuristics: heuristics.normalize()}
}

// Heuristics returns the rules the engine applies.
func (e *Engine) Heuristics() Heuristics {
	return e.heuristics
}

// Generate produces a complete replacement timetable for the snapshot's
// classes. Allocation problems become warnings; reference data and
// consistency problems return an error and no output.
func (e *Engine) Generate(snapshot Snapshot) (*Result, error) {
	cat, err := newCatalog(snapshot)
	if err != nil {
		return nil, err
	}

	index, loads, err := seedState(cat, snapshot)
	if err != nil {
		return nil, err
	}
	allocator := newCourseAllocator(cat, index, loads, e.heuristics)

	result := &Result{
		Entries:  []models.TimetableEntry{},
		Warnings: []Warning{},
	}
	for _, class := range cat.classes {
		result.Summary.ClassesProcessed++
		for _, course := range cat.coursesFor(class.ID) {
			entries, warning, err := allocator.Allocate(class, course)
			if err != nil {
				return nil, err
			}
			if warning != nil {
				result.Warnings = append(result.Warnings, *warning)
			}
			if len(entries) == 0 {
				result.Summary.CoursesSkipped++
				continue
			}
			result.Summary.CoursesScheduled++
			result.Entries = append(result.Entries, entries...)
		}
	}
	return result, nil
}

// seedState replays retained entries into a fresh index and load tracker.
func seedState(cat *catalog, snapshot Snapshot) (*AvailabilityIndex, *LoadTracker, error) {
	index := NewAvailabilityIndex()
	loads := NewLoadTracker(snapshot.Faculty)

	type commitment struct {
		facultyID  int64
		classID    int64
		courseCode string
	}
	seen := make(map[commitment]struct{})
	for _, entry := range snapshot.Retained {
		if err := index.Occupy(entry.ClassID, entry.FacultyID, entry.RoomNo, entry.SlotID); err != nil {
			return nil, nil, fmt.Errorf("%w: retained entries overlap: %v", ErrInvalidSnapshot, err)
		}
		key := commitment{entry.FacultyID, entry.ClassID, entry.CourseCode}
		if _, counted := seen[key]; counted {
			continue
		}
		seen[key] = struct{}{}
		if course, ok := cat.courses[entry.CourseCode]; ok {
			loads.Seed(entry.FacultyID, course.HoursPerWeek)
		}
	}
	return index, loads, nil
}
