package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ClassroomRepository reads bookable rooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

func (r *ClassroomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every classroom.
func (r *ClassroomRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Classroom, error) {
	const query = `SELECT room_no, room_type, capacity FROM classrooms ORDER BY capacity, room_no`
	var rooms []models.Classroom
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rooms, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}

// FindByRoomNo returns one classroom.
func (r *ClassroomRepository) FindByRoomNo(ctx context.Context, roomNo string) (*models.Classroom, error) {
	const query = `SELECT room_no, room_type, capacity FROM classrooms WHERE room_no = $1`
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, roomNo); err != nil {
		return nil, fmt.Errorf("get classroom %s: %w", roomNo, err)
	}
	return &room, nil
}
