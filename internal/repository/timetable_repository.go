package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// generationLockKey serialises generation runs. Every run reads the entries
// of other semesters as fixed bookings, so runs for different semesters must
// not interleave either.
const generationLockKey int64 = 0x74696d6574

// insertBatchSize keeps each multi-row insert well under the Postgres
// parameter limit.
const insertBatchSize = 1000

const targetClasses = `SELECT class_id FROM classes WHERE sem = $1 AND ($2::int IS NULL OR year = $2)`

const viewColumns = `SELECT t.id, t.class_id, c.sec, c.year, c.sem, t.course_code, co.course_name, co.course_type,
t.fac_id, f.fac_name, t.room_no, r.room_type, t.slot_id, s.day_of_week, s.start_time, s.end_time
FROM timetable t
JOIN classes c ON c.class_id = t.class_id
JOIN courses co ON co.course_code = t.course_code
JOIN faculty f ON f.fac_id = t.fac_id
JOIN classrooms r ON r.room_no = t.room_no
JOIN time_slots s ON s.slot_id = t.slot_id`

// TimetableRepository persists generated entries and serves joined views.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockGeneration takes the transaction-scoped generation lock. exec must be a
// transaction; the lock is released on commit or rollback.
func (r *TimetableRepository) LockGeneration(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, generationLockKey); err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	return nil
}

// ListRetained returns the entries of classes outside the filter. They stay
// booked while the filtered classes are regenerated.
func (r *TimetableRepository) ListRetained(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) ([]models.TimetableEntry, error) {
	const query = `SELECT class_id, course_code, fac_id, room_no, slot_id FROM timetable
WHERE class_id NOT IN (` + targetClasses + `) ORDER BY class_id, slot_id`
	var entries []models.TimetableEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, filter.Semester, filter.Year); err != nil {
		return nil, fmt.Errorf("list retained timetable entries: %w", err)
	}
	return entries, nil
}

// DeleteForClasses removes every entry of the classes selected by the filter.
func (r *TimetableRepository) DeleteForClasses(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) (int64, error) {
	const query = `DELETE FROM timetable WHERE class_id IN (` + targetClasses + `)`
	res, err := r.exec(exec).ExecContext(ctx, query, filter.Semester, filter.Year)
	if err != nil {
		return 0, fmt.Errorf("delete timetable entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete timetable entries: %w", err)
	}
	return affected, nil
}

// InsertBatch writes entries with multi-row inserts.
func (r *TimetableRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	const query = `INSERT INTO timetable (class_id, course_code, fac_id, room_no, slot_id)
VALUES (:class_id, :course_code, :fac_id, :room_no, :slot_id)`
	target := r.exec(exec)
	for start := 0; start < len(entries); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, entries[start:end]); err != nil {
			return fmt.Errorf("insert timetable entries: %w", err)
		}
	}
	return nil
}

// ListByClass returns the class's weekly timetable.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID int64) ([]models.TimetableView, error) {
	return r.listView(ctx, "t.class_id", classID)
}

// ListByFaculty returns the faculty member's weekly timetable.
func (r *TimetableRepository) ListByFaculty(ctx context.Context, facultyID int64) ([]models.TimetableView, error) {
	return r.listView(ctx, "t.fac_id", facultyID)
}

// ListByRoom returns the room's weekly timetable.
func (r *TimetableRepository) ListByRoom(ctx context.Context, roomNo string) ([]models.TimetableView, error) {
	return r.listView(ctx, "t.room_no", roomNo)
}

func (r *TimetableRepository) listView(ctx context.Context, column string, value interface{}) ([]models.TimetableView, error) {
	query := viewColumns + `
WHERE ` + column + ` = $1
ORDER BY ` + fmt.Sprintf(dayOrder, "s.day_of_week") + `, s.start_time, t.class_id`
	views := []models.TimetableView{}
	if err := r.db.SelectContext(ctx, &views, query, value); err != nil {
		return nil, fmt.Errorf("list timetable by %s: %w", column, err)
	}
	return views, nil
}
