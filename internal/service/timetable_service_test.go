package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	mock.ExpectBegin()
	mock.ExpectCommit()

	year := 3
	resp, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 5, Year: &year})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "SUCCEEDED", resp.Status)
	assert.Len(t, resp.Entries, 5)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, 5, resp.EntriesCreated)
	assert.Equal(t, scheduler.Summary{ClassesProcessed: 1, CoursesScheduled: 2}, resp.Summary)

	assert.True(t, fx.writer.locked)
	assert.Equal(t, models.ClassFilter{Semester: 5, Year: &year}, fx.loader.filter)
	assert.Equal(t, models.ClassFilter{Semester: 5, Year: &year}, fx.writer.deleted)
	assert.Equal(t, resp.Entries, fx.writer.inserted)

	require.Len(t, fx.runs.saved, 1)
	saved := fx.runs.saved[0]
	assert.Equal(t, resp.RunID, saved.ID)
	assert.Equal(t, models.TimetableRunStatusSucceeded, saved.Status)
	assert.Equal(t, 5, saved.EntriesCreated)
	assert.JSONEq(t, `[]`, string(saved.Warnings))
	assert.Nil(t, saved.Error)
	assert.Equal(t, []string{timetableCachePattern, timetableCachePattern}, fx.cache.invalidated)
}

func TestTimetableServiceGenerateInvalidatesAroundCommit(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	var committed []bool
	fx.cache.onDelete = func() {
		committed = append(committed, mock.ExpectationsWereMet() == nil)
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, committed)
}

func TestTimetableServiceGenerateRecordsWarnings(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	fx.loader.snapshot.CourseFaculty = fx.loader.snapshot.CourseFaculty[:2]

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, scheduler.WarningNoEligibleFaculty, resp.Warnings[0].Kind)
	assert.Equal(t, 1, resp.Summary.CoursesSkipped)
	assert.Contains(t, string(fx.runs.saved[0].Warnings), "NO_ELIGIBLE_FACULTY")
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	_, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.runs.saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceGenerateFailures(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(fx *timetableFixture)
		wantCode string
		inserted bool
	}{
		{
			name: "invalid snapshot",
			mutate: func(fx *timetableFixture) {
				fx.loader.snapshot.Slots = nil
			},
			wantCode: appErrors.ErrPreconditionFailed.Code,
		},
		{
			name: "lock failure",
			mutate: func(fx *timetableFixture) {
				fx.writer.lockErr = errors.New("lock timeout")
			},
			wantCode: appErrors.ErrInternal.Code,
		},
		{
			name: "load failure",
			mutate: func(fx *timetableFixture) {
				fx.loader.err = errors.New("connection reset")
			},
			wantCode: appErrors.ErrInternal.Code,
		},
		{
			name: "insert failure",
			mutate: func(fx *timetableFixture) {
				fx.writer.insertErr = errors.New("unique violation")
			},
			wantCode: appErrors.ErrInternal.Code,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txProvider, mock := newTxProviderMock(t)
			fx := newTimetableFixture(t, txProvider)
			tc.mutate(fx)

			mock.ExpectBegin()
			mock.ExpectRollback()

			_, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
			assert.NoError(t, mock.ExpectationsWereMet())

			require.Len(t, fx.runs.saved, 1)
			failed := fx.runs.saved[0]
			assert.Equal(t, models.TimetableRunStatusFailed, failed.Status)
			require.NotNil(t, failed.Error)
			assert.False(t, fx.runs.savedInTx[0])
			assert.Empty(t, fx.cache.invalidated)
		})
	}
}

func TestTimetableServiceGenerateAsync(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	dispatcher := &dispatcherStub{}
	fx.service.SetDispatcher(dispatcher)

	resp, err := fx.service.GenerateAsync(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", resp.Status)

	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, resp.RunID, dispatcher.jobs[0].ID)
	assert.Equal(t, TimetableJobType, dispatcher.jobs[0].Type)
	require.Len(t, fx.runs.saved, 1)
	assert.Equal(t, models.TimetableRunStatusQueued, fx.runs.saved[0].Status)
}

func TestTimetableServiceGenerateAsyncEnqueueFailure(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	fx.service.SetDispatcher(&dispatcherStub{err: errors.New("queue stopped")})

	_, err := fx.service.GenerateAsync(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.Len(t, fx.runs.saved, 2)
	assert.Equal(t, models.TimetableRunStatusFailed, fx.runs.saved[1].Status)
}

func TestTimetableServiceGenerateAsyncWithoutQueue(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	_, err := fx.service.GenerateAsync(context.Background(), dto.GenerateTimetableRequest{Semester: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.runs.saved)
}

func TestTimetableWorkerHandle(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	runID := "0b7a4c1e-1f7e-4a8e-9c55-2f1f5f0c2a11"
	fx.runs.runs[runID] = &models.TimetableRun{ID: runID, Semester: 5, Status: models.TimetableRunStatusQueued}
	worker := NewTimetableWorker(fx.service, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := worker.Handle(context.Background(), jobs.Job{ID: runID, Type: TimetableJobType})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, models.TimetableRunStatusSucceeded, fx.runs.runs[runID].Status)
	assert.Equal(t, 5, fx.runs.runs[runID].EntriesCreated)

	// A completed run is not generated twice.
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: runID, Type: TimetableJobType}))
	assert.Len(t, fx.runs.saved, 1)
}

func TestTimetableWorkerPermanentFailures(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	fx.loader.snapshot.Rooms = nil
	runID := "8d3c0f52-54c4-4a43-8f0e-0e5e5d0b7c9e"
	fx.runs.runs[runID] = &models.TimetableRun{ID: runID, Semester: 5, Status: models.TimetableRunStatusQueued}
	worker := NewTimetableWorker(fx.service, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := worker.Handle(context.Background(), jobs.Job{ID: runID, Type: TimetableJobType})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
	assert.Equal(t, models.TimetableRunStatusFailed, fx.runs.runs[runID].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "missing", Type: TimetableJobType})
	assert.True(t, jobs.IsPermanent(err))

	err = worker.Handle(context.Background(), jobs.Job{ID: runID, Type: "report.export"})
	assert.True(t, jobs.IsPermanent(err))
}

func TestTimetableWorkerRetriesStorageFailures(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	fx.writer.insertErr = errors.New("deadlock detected")
	runID := "4f1f8a0e-90b1-4a51-a3f9-2b36b5d46a07"
	fx.runs.runs[runID] = &models.TimetableRun{ID: runID, Semester: 5, Status: models.TimetableRunStatusQueued}
	worker := NewTimetableWorker(fx.service, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := worker.Handle(context.Background(), jobs.Job{ID: runID, Type: TimetableJobType})
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
}

func TestTimetableServiceGetRun(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	runID := "0b7a4c1e-1f7e-4a8e-9c55-2f1f5f0c2a11"
	fx.runs.runs[runID] = &models.TimetableRun{ID: runID, Semester: 5, Status: models.TimetableRunStatusSucceeded}

	run, err := fx.service.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)

	_, err = fx.service.GetRun(context.Background(), "6a8f7c1d-0000-4000-8000-000000000000")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = fx.service.GetRun(context.Background(), "not-a-uuid")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceListRuns(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)
	fx.runs.listTotal = 42

	_, pagination, err := fx.service.ListRuns(context.Background(), dto.TimetableRunQuery{})
	require.NoError(t, err)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 42}, pagination)
	assert.Equal(t, 20, fx.runs.listFilter.PageSize)

	_, _, err = fx.service.ListRuns(context.Background(), dto.TimetableRunQuery{PageSize: 500})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceValidate(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	mock.ExpectBegin()
	mock.ExpectRollback()

	resp, err := fx.service.Validate(context.Background(), dto.ValidateTimetableRequest{
		Semester: 5,
		Entries: []models.TimetableEntry{
			{ClassID: 1, CourseCode: "CS301", FacultyID: 1, RoomNo: "L101", SlotID: 3},
			{ClassID: 1, CourseCode: "CS301", FacultyID: 2, RoomNo: "L101", SlotID: 3},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, resp.Valid)

	rules := make(map[string]bool)
	for _, v := range resp.Violations {
		rules[v.Rule] = true
	}
	assert.True(t, rules[scheduler.RuleClassClash])
}

func TestTimetableServiceValidateRejectsEmptyEntries(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	fx := newTimetableFixture(t, txProvider)

	_, err := fx.service.Validate(context.Background(), dto.ValidateTimetableRequest{Semester: 5})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type timetableFixture struct {
	service *TimetableService
	loader  *snapshotSourceStub
	writer  *timetableWriterStub
	runs    *runStoreStub
	cache   *cacheRepoStub
}

func newTimetableFixture(t *testing.T, tx txProvider) *timetableFixture {
	t.Helper()
	fx := &timetableFixture{
		loader: &snapshotSourceStub{snapshot: serviceSnapshot()},
		writer: &timetableWriterStub{},
		runs:   &runStoreStub{runs: map[string]*models.TimetableRun{}},
		cache:  &cacheRepoStub{},
	}
	cache := NewCacheService(fx.cache, nil, time.Minute, nil, true)
	fx.service = NewTimetableService(tx, fx.loader, fx.writer, fx.runs, nil, cache, NewMetricsService(), nil, nil)
	fixed := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	fx.service.now = func() time.Time { return fixed }
	return fx
}

func serviceSnapshot() scheduler.Snapshot {
	return scheduler.Snapshot{
		Classes: []models.Class{{ID: 1, Section: "A", Year: 3, Semester: 5, StudentCount: 30}},
		Courses: []models.Course{
			{Code: "CS391", Name: "Networks Lab", Type: models.CourseTypeLab, HoursPerWeek: 2, Credits: 1},
			{Code: "CS301", Name: "Networks", Type: models.CourseTypeTheory, HoursPerWeek: 3, Credits: 3},
		},
		ClassCourses: []models.ClassCourse{
			{ClassID: 1, CourseCode: "CS301"},
			{ClassID: 1, CourseCode: "CS391"},
		},
		CourseFaculty: []models.CourseFaculty{
			{CourseCode: "CS391", FacultyID: 1},
			{CourseCode: "CS391", FacultyID: 2},
			{CourseCode: "CS301", FacultyID: 1},
			{CourseCode: "CS301", FacultyID: 2},
		},
		Faculty: []models.Faculty{
			{ID: 1, Name: "Ada", MaxHoursWeek: 6},
			{ID: 2, Name: "Grace", MaxHoursWeek: 6},
		},
		Rooms: []models.Classroom{
			{RoomNo: "L101", Type: models.RoomTypeLecture, Capacity: 40},
			{RoomNo: "LAB1", Type: models.RoomTypeLab, Capacity: 35},
		},
		Slots: []models.TimeSlot{
			{ID: 1, DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", IsLab: true},
			{ID: 2, DayOfWeek: "Monday", StartTime: "10:00", EndTime: "11:00", IsLab: true},
			{ID: 3, DayOfWeek: "Monday", StartTime: "11:00", EndTime: "12:00"},
			{ID: 4, DayOfWeek: "Tuesday", StartTime: "09:00", EndTime: "10:00"},
			{ID: 5, DayOfWeek: "Tuesday", StartTime: "10:00", EndTime: "11:00"},
		},
	}
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type snapshotSourceStub struct {
	snapshot scheduler.Snapshot
	err      error
	filter   models.ClassFilter
}

func (s *snapshotSourceStub) Load(_ context.Context, _ sqlx.ExtContext, filter models.ClassFilter) (scheduler.Snapshot, error) {
	s.filter = filter
	if s.err != nil {
		return scheduler.Snapshot{}, s.err
	}
	return s.snapshot, nil
}

type timetableWriterStub struct {
	locked    bool
	lockErr   error
	deleted   models.ClassFilter
	inserted  []models.TimetableEntry
	insertErr error
}

func (s *timetableWriterStub) LockGeneration(context.Context, sqlx.ExtContext) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locked = true
	return nil
}

func (s *timetableWriterStub) DeleteForClasses(_ context.Context, _ sqlx.ExtContext, filter models.ClassFilter) (int64, error) {
	s.deleted = filter
	return 0, nil
}

func (s *timetableWriterStub) InsertBatch(_ context.Context, _ sqlx.ExtContext, entries []models.TimetableEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append([]models.TimetableEntry(nil), entries...)
	return nil
}

type runStoreStub struct {
	mu         sync.Mutex
	runs       map[string]*models.TimetableRun
	saved      []models.TimetableRun
	savedInTx  []bool
	listTotal  int
	listFilter models.TimetableRunFilter
}

func (s *runStoreStub) Save(_ context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.saved = append(s.saved, copied)
	s.savedInTx = append(s.savedInTx, exec != nil)
	s.runs[run.ID] = &copied
	return nil
}

func (s *runStoreStub) FindByID(_ context.Context, id string) (*models.TimetableRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get timetable run %s: %w", id, sql.ErrNoRows)
	}
	copied := *run
	return &copied, nil
}

func (s *runStoreStub) List(_ context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error) {
	s.listFilter = filter
	return []models.TimetableRun{}, s.listTotal, nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type cacheRepoStub struct {
	values      map[string]interface{}
	invalidated []string
	onDelete    func()
}

func (c *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *cacheRepoStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.values == nil {
		c.values = map[string]interface{}{}
	}
	c.values[key] = value
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	if c.onDelete != nil {
		c.onDelete()
	}
	return nil
}
