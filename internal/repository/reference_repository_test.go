package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// pqTime mirrors how lib/pq hands back a TIME column.
func pqTime(t *testing.T, clock string) time.Time {
	t.Helper()
	value, err := time.Parse("15:04:05", clock)
	require.NoError(t, err)
	return value
}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryListForRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	year := 3
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, sec, year, sem, nos, fac_id FROM classes WHERE sem = $1 AND ($2::int IS NULL OR year = $2) ORDER BY class_id")).
		WithArgs(5, year).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "sec", "year", "sem", "nos", "fac_id"}).
			AddRow(1, "A", 3, 5, 60, nil).
			AddRow(2, "B", 3, 5, 58, 7))

	classes, err := repo.ListForRun(context.Background(), nil, models.ClassFilter{Semester: 5, Year: &year})
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Nil(t, classes[0].AdvisorID)
	require.NotNil(t, classes[1].AdvisorID)
	assert.Equal(t, int64(7), *classes[1].AdvisorID)
	assert.Equal(t, 58, classes[1].StudentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListForRunAllYears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE sem = $1")).
		WithArgs(5, nil).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "sec", "year", "sem", "nos", "fac_id"}))

	classes, err := repo.ListForRun(context.Background(), nil, models.ClassFilter{Semester: 5})
	require.NoError(t, err)
	assert.Empty(t, classes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE class_id = $1")).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCourseRepositoryQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_code, course_name, credits, course_type, hours_week, dept_id FROM courses ORDER BY course_code")).
		WillReturnRows(sqlmock.NewRows([]string{"course_code", "course_name", "credits", "course_type", "hours_week", "dept_id"}).
			AddRow("CS301", "Networks", 3, "THEORY", 3, 1).
			AddRow("CS391", "Networks Lab", 1, "LAB", 2, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, course_code FROM class_courses WHERE class_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "course_code"}).AddRow(1, "CS301").AddRow(1, "CS391"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_code, fac_id FROM course_faculty")).
		WillReturnRows(sqlmock.NewRows([]string{"course_code", "fac_id"}).AddRow("CS301", 2))

	courses, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, models.CourseTypeLab, courses[1].Type)
	assert.Equal(t, models.RoomTypeLab, courses[1].RoomType())

	mappings, err := repo.ListClassCourses(ctx, nil, []int64{1})
	require.NoError(t, err)
	assert.Len(t, mappings, 2)

	eligible, err := repo.ListCourseFaculty(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.CourseFaculty{{CourseCode: "CS301", FacultyID: 2}}, eligible)

	none, err := repo.ListClassCourses(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyClassroomSlotRepositories(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT fac_id, fac_name, dept_id, design, max_hours_week FROM faculty ORDER BY fac_id")).
		WillReturnRows(sqlmock.NewRows([]string{"fac_id", "fac_name", "dept_id", "design", "max_hours_week"}).
			AddRow(1, "Ada", 1, "Professor", 12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_no, room_type, capacity FROM classrooms ORDER BY capacity, room_no")).
		WillReturnRows(sqlmock.NewRows([]string{"room_no", "room_type", "capacity"}).AddRow("L101", "LECTURE", 40))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_id, day_of_week, start_time, end_time, is_lab, is_break FROM time_slots ORDER BY CASE UPPER(day_of_week)")).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id", "day_of_week", "start_time", "end_time", "is_lab", "is_break"}).
			AddRow(1, "Monday", pqTime(t, "09:00:00"), pqTime(t, "10:00:00"), true, false).
			AddRow(2, "Monday", []byte("10:00:00"), []byte("11:00:00"), false, false))

	faculty, err := NewFacultyRepository(db).List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, faculty[0].MaxHoursWeek)

	rooms, err := NewClassroomRepository(db).List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoomTypeLecture, rooms[0].Type)

	slots, err := NewTimeSlotRepository(db).List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].IsLab)
	assert.Equal(t, models.Clock("09:00:00"), slots[0].StartTime)
	assert.Equal(t, models.Clock("10:00:00"), slots[0].EndTime)
	assert.Equal(t, models.Clock("10:00:00"), slots[1].StartTime)
	start, err := slots[0].StartMinutes()
	require.NoError(t, err)
	assert.Equal(t, 9*60, start)
	end, err := slots[1].EndMinutes()
	require.NoError(t, err)
	assert.Equal(t, 11*60, end)
	assert.NoError(t, scheduler.Snapshot{Faculty: faculty, Rooms: rooms, Slots: slots}.Validate())
	assert.NoError(t, mock.ExpectationsWereMet())
}
