package dto

import (
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerateTimetableRequest selects the classes a generation run replaces.
type GenerateTimetableRequest struct {
	Semester int  `json:"semester" validate:"required,min=1,max=12"`
	Year     *int `json:"year,omitempty" validate:"omitempty,min=1,max=10"`
}

// GenerateTimetableResponse reports a completed run.
type GenerateTimetableResponse struct {
	RunID          string                  `json:"runId"`
	Status         string                  `json:"status"`
	Entries        []models.TimetableEntry `json:"entries"`
	Warnings       []scheduler.Warning     `json:"warnings"`
	Summary        scheduler.Summary       `json:"summary"`
	EntriesCreated int                     `json:"entriesCreated"`
	DurationMS     int64                   `json:"durationMs"`
}

// GenerateAsyncResponse is returned when a run is queued.
type GenerateAsyncResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// TimetableRunQuery filters the run log.
type TimetableRunQuery struct {
	Semester *int `form:"semester" validate:"omitempty,min=1,max=12"`
	Page     int  `form:"page" validate:"omitempty,min=1"`
	PageSize int  `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ValidateTimetableRequest checks candidate entries against the live reference data.
type ValidateTimetableRequest struct {
	Semester int                     `json:"semester" validate:"required,min=1,max=12"`
	Year     *int                    `json:"year,omitempty" validate:"omitempty,min=1,max=10"`
	Entries  []models.TimetableEntry `json:"entries" validate:"required,min=1"`
}

// ValidateTimetableResponse lists every broken invariant.
type ValidateTimetableResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []scheduler.Violation `json:"violations"`
}

// TimetableExportQuery selects the export format.
type TimetableExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
