package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimetableRunRepository persists the generation run log.
type TimetableRunRepository struct {
	db *sqlx.DB
}

// NewTimetableRunRepository constructs a TimetableRunRepository.
func NewTimetableRunRepository(db *sqlx.DB) *TimetableRunRepository {
	return &TimetableRunRepository{db: db}
}

func (r *TimetableRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Save inserts the run or overwrites its outcome when the id already exists.
func (r *TimetableRunRepository) Save(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("timetable run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.TimetableRunStatusQueued
	}
	if len(run.Warnings) == 0 {
		run.Warnings = types.JSONText(`[]`)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetable_runs (id, semester, year, status, classes_processed, courses_scheduled, courses_skipped,
  entries_created, warnings, error, duration_ms, created_at)
VALUES (:id, :semester, :year, :status, :classes_processed, :courses_scheduled, :courses_skipped,
  :entries_created, :warnings, :error, :duration_ms, :created_at)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    classes_processed = EXCLUDED.classes_processed,
    courses_scheduled = EXCLUDED.courses_scheduled,
    courses_skipped = EXCLUDED.courses_skipped,
    entries_created = EXCLUDED.entries_created,
    warnings = EXCLUDED.warnings,
    error = EXCLUDED.error,
    duration_ms = EXCLUDED.duration_ms`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("save timetable run: %w", err)
	}
	return nil
}

// FindByID returns one run.
func (r *TimetableRunRepository) FindByID(ctx context.Context, id string) (*models.TimetableRun, error) {
	const query = `SELECT id, semester, year, status, classes_processed, courses_scheduled, courses_skipped,
entries_created, warnings, error, duration_ms, created_at FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, fmt.Errorf("get timetable run %s: %w", id, err)
	}
	return &run, nil
}

// List returns runs newest first with the total count for the filter.
func (r *TimetableRunRepository) List(ctx context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	const countQuery = `SELECT COUNT(*) FROM timetable_runs WHERE ($1::int IS NULL OR semester = $1)`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, filter.Semester); err != nil {
		return nil, 0, fmt.Errorf("count timetable runs: %w", err)
	}

	const listQuery = `SELECT id, semester, year, status, classes_processed, courses_scheduled, courses_skipped,
entries_created, warnings, error, duration_ms, created_at FROM timetable_runs
WHERE ($1::int IS NULL OR semester = $1) ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	runs := []models.TimetableRun{}
	if err := r.db.SelectContext(ctx, &runs, listQuery, filter.Semester, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, total, nil
}
