package scheduler

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

// OverloadError is returned when adding hours would push a faculty member
// past their weekly maximum.
type OverloadError struct {
	FacultyID int64
	Current   int
	Adding    int
	Max       int
}

// Error implements the error interface.
func (e *OverloadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("faculty %d would carry %d of %d weekly hours", e.FacultyID, e.Current+e.Adding, e.Max)
}

// LoadTracker keeps the running weekly hours per faculty member.
type LoadTracker struct {
	max     map[int64]int
	current map[int64]int
}

// NewLoadTracker starts every known faculty member at zero hours.
func NewLoadTracker(faculty []models.Faculty) *LoadTracker {
	t := &LoadTracker{
		max:     make(map[int64]int, len(faculty)),
		current: make(map[int64]int, len(faculty)),
	}
	for _, fac := range faculty {
		t.max[fac.ID] = fac.MaxHoursWeek
		t.current[fac.ID] = 0
	}
	return t
}

// Seed records an existing commitment. It is not bounded by the maximum.
func (t *LoadTracker) Seed(facultyID int64, hours int) {
	t.current[facultyID] += hours
}

// CurrentHours returns the hours already committed for the faculty member.
func (t *LoadTracker) CurrentHours(facultyID int64) int {
	return t.current[facultyID]
}

// RemainingCapacity returns max minus current hours. Unknown faculty have none.
func (t *LoadTracker) RemainingCapacity(facultyID int64) int {
	limit, ok := t.max[facultyID]
	if !ok {
		return 0
	}
	return limit - t.current[facultyID]
}

// AddHours commits hours to the faculty member.
func (t *LoadTracker) AddHours(facultyID int64, hours int) error {
	if hours > t.RemainingCapacity(facultyID) {
		return &OverloadError{FacultyID: facultyID, Current: t.current[facultyID], Adding: hours, Max: t.max[facultyID]}
	}
	t.current[facultyID] += hours
	return nil
}
