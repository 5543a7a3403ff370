package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTimetableRepositoryWriteInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)
	ctx := context.Background()
	filter := models.ClassFilter{Semester: 5}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(generationLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable WHERE class_id IN (SELECT class_id FROM classes WHERE sem = $1 AND ($2::int IS NULL OR year = $2))")).
		WithArgs(5, nil).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable (class_id, course_code, fac_id, room_no, slot_id)")).
		WithArgs(int64(1), "CS391", int64(1), "LAB1", int64(1), int64(1), "CS391", int64(1), "LAB1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.LockGeneration(ctx, tx))
	deleted, err := repo.DeleteForClasses(ctx, tx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	require.NoError(t, repo.InsertBatch(ctx, tx, []models.TimetableEntry{
		{ClassID: 1, CourseCode: "CS391", FacultyID: 1, RoomNo: "LAB1", SlotID: 1},
		{ClassID: 1, CourseCode: "CS391", FacultyID: 1, RoomNo: "LAB1", SlotID: 2},
	}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	require.NoError(t, NewTimetableRepository(db).InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListRetained(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	year := 2
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, course_code, fac_id, room_no, slot_id FROM timetable WHERE class_id NOT IN (SELECT class_id FROM classes")).
		WithArgs(3, year).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "course_code", "fac_id", "room_no", "slot_id"}).
			AddRow(9, "MA101", 4, "L101", 3))

	entries, err := repo.ListRetained(context.Background(), nil, models.ClassFilter{Semester: 3, Year: &year})
	require.NoError(t, err)
	assert.Equal(t, []models.TimetableEntry{{ClassID: 9, CourseCode: "MA101", FacultyID: 4, RoomNo: "L101", SlotID: 3}}, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryViews(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)
	ctx := context.Background()

	columns := []string{"id", "class_id", "sec", "year", "sem", "course_code", "course_name", "course_type",
		"fac_id", "fac_name", "room_no", "room_type", "slot_id", "day_of_week", "start_time", "end_time"}
	row := []driver.Value{10, 1, "A", 3, 5, "CS301", "Networks", "THEORY", 2, "Grace", "L101", "LECTURE", 3, "Monday",
		pqTime(t, "11:00:00"), pqTime(t, "12:00:00")}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.class_id = $1")).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.fac_id = $1")).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.room_no = $1")).WithArgs("L101").
		WillReturnRows(sqlmock.NewRows(columns))

	byClass, err := repo.ListByClass(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	assert.Equal(t, "Grace", byClass[0].FacultyName)
	assert.Equal(t, models.RoomTypeLecture, byClass[0].RoomType)
	assert.Equal(t, models.Clock("11:00:00"), byClass[0].StartTime)
	assert.Equal(t, models.Clock("12:00:00"), byClass[0].EndTime)

	byFaculty, err := repo.ListByFaculty(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, byFaculty, 1)

	byRoom, err := repo.ListByRoom(ctx, "L101")
	require.NoError(t, err)
	assert.NotNil(t, byRoom)
	assert.Empty(t, byRoom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
