package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FacultyRepository reads teaching staff.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

func (r *FacultyRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every faculty member ordered by id.
func (r *FacultyRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Faculty, error) {
	const query = `SELECT fac_id, fac_name, dept_id, design, max_hours_week FROM faculty ORDER BY fac_id`
	var faculty []models.Faculty
	if err := sqlx.SelectContext(ctx, r.exec(exec), &faculty, query); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, nil
}

// FindByID returns one faculty member.
func (r *FacultyRepository) FindByID(ctx context.Context, id int64) (*models.Faculty, error) {
	const query = `SELECT fac_id, fac_name, dept_id, design, max_hours_week FROM faculty WHERE fac_id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, fmt.Errorf("get faculty %d: %w", id, err)
	}
	return &faculty, nil
}
