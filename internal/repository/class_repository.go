package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ClassRepository reads student sections.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListForRun returns the classes selected by the filter ordered by id.
func (r *ClassRepository) ListForRun(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) ([]models.Class, error) {
	const query = `SELECT class_id, sec, year, sem, nos, fac_id FROM classes
WHERE sem = $1 AND ($2::int IS NULL OR year = $2) ORDER BY class_id`
	var classes []models.Class
	if err := sqlx.SelectContext(ctx, r.exec(exec), &classes, query, filter.Semester, filter.Year); err != nil {
		return nil, fmt.Errorf("list classes for semester %d: %w", filter.Semester, err)
	}
	return classes, nil
}

// FindByID returns one class.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	const query = `SELECT class_id, sec, year, sem, nos, fac_id FROM classes WHERE class_id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, fmt.Errorf("get class %d: %w", id, err)
	}
	return &class, nil
}
