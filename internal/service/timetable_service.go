package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const (
	// TimetableJobType identifies queued generation runs.
	TimetableJobType = "timetable.generate"

	timetableCachePattern = "timetable:*"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type snapshotSource interface {
	Load(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) (scheduler.Snapshot, error)
}

type timetableWriter interface {
	LockGeneration(ctx context.Context, exec sqlx.ExtContext) error
	DeleteForClasses(ctx context.Context, exec sqlx.ExtContext, filter models.ClassFilter) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
}

type timetableRunStore interface {
	Save(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
	List(ctx context.Context, filter models.TimetableRunFilter) ([]models.TimetableRun, int, error)
}

type runDispatcher interface {
	Enqueue(job jobs.Job) error
}

// TimetableService runs generation, records the run log and answers validation requests.
type TimetableService struct {
	tx         txProvider
	loader     snapshotSource
	writer     timetableWriter
	runs       timetableRunStore
	engine     *scheduler.Engine
	cache      *CacheService
	metrics    *MetricsService
	dispatcher runDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewTimetableService constructs the generation service.
func NewTimetableService(
	tx txProvider,
	loader snapshotSource,
	writer timetableWriter,
	runs timetableRunStore,
	engine *scheduler.Engine,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = scheduler.NewEngine(scheduler.DefaultHeuristics())
	}
	return &TimetableService{
		tx:        tx,
		loader:    loader,
		writer:    writer,
		runs:      runs,
		engine:    engine,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// SetDispatcher attaches the queue used by GenerateAsync.
func (s *TimetableService) SetDispatcher(dispatcher runDispatcher) {
	s.dispatcher = dispatcher
}

// Generate replaces the timetable of the selected classes in one transaction.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid generate payload")
	}
	run := &models.TimetableRun{
		ID:        uuid.NewString(),
		Semester:  req.Semester,
		Year:      req.Year,
		CreatedAt: s.now().UTC(),
	}
	return s.execute(ctx, run)
}

// GenerateAsync records a queued run and hands it to the worker pool.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateAsyncResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid generate payload")
	}
	if s.dispatcher == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async generation is not configured")
	}
	run := &models.TimetableRun{
		ID:        uuid.NewString(),
		Semester:  req.Semester,
		Year:      req.Year,
		Status:    models.TimetableRunStatusQueued,
		CreatedAt: s.now().UTC(),
	}
	if err := s.runs.Save(ctx, nil, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record timetable run")
	}
	if err := s.dispatcher.Enqueue(jobs.Job{ID: run.ID, Type: TimetableJobType, Payload: req}); err != nil {
		s.recordFailure(ctx, run, err, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue timetable generation")
	}
	s.logger.Sugar().Infow("timetable generation queued", "run_id", run.ID, "semester", run.Semester)
	return &dto.GenerateAsyncResponse{RunID: run.ID, Status: string(run.Status)}, nil
}

// ListRuns pages through the run log, newest first.
func (s *TimetableService) ListRuns(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Validation(err, "invalid run query")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	runs, total, err := s.runs.List(ctx, models.TimetableRunFilter{
		Semester: query.Semester,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	return runs, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// GetRun returns one run log entry.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	return run, nil
}

// Validate checks candidate entries against the current reference data and
// the entries of every class outside the request's semester and year.
func (s *TimetableService) Validate(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid validate payload")
	}
	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	snapshot, err := s.loader.Load(ctx, tx, models.ClassFilter{Semester: req.Semester, Year: req.Year})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference data")
	}
	violations, err := scheduler.Validate(snapshot, req.Entries)
	if err != nil {
		return nil, mapGenerationError(err)
	}
	return &dto.ValidateTimetableResponse{Valid: len(violations) == 0, Violations: violations}, nil
}

// execute runs one generation for run and records its outcome.
func (s *TimetableService) execute(ctx context.Context, run *models.TimetableRun) (*dto.GenerateTimetableResponse, error) {
	heuristics := s.engine.Heuristics()
	log := s.logger.Sugar().With("run_id", run.ID, "semester", run.Semester)
	if run.Year != nil {
		log = log.With("year", *run.Year)
	}
	log.Infow("timetable generation started",
		"faculty_order", heuristics.FacultyOrder,
		"room_order", heuristics.RoomOrder,
	)

	start := s.now()
	result, err := s.generateInTx(ctx, run, start)
	if err != nil {
		s.recordFailure(ctx, run, err, s.now().Sub(start))
		return nil, mapGenerationError(err)
	}
	duration := time.Duration(run.DurationMS) * time.Millisecond

	s.invalidateViews(context.WithoutCancel(ctx), run.ID)
	for _, warning := range result.Warnings {
		log.Warnw("timetable allocation warning",
			"kind", warning.Kind,
			"class_id", warning.ClassID,
			"course_code", warning.CourseCode,
			"message", warning.Message,
		)
		s.metrics.RecordGenerationWarning(string(warning.Kind))
	}
	s.metrics.ObserveGenerationRun(string(models.TimetableRunStatusSucceeded), duration, len(result.Entries))
	log.Infow("timetable generation finished",
		"classes_processed", result.Summary.ClassesProcessed,
		"courses_scheduled", result.Summary.CoursesScheduled,
		"courses_skipped", result.Summary.CoursesSkipped,
		"entries", len(result.Entries),
		"warnings", len(result.Warnings),
		"duration_ms", run.DurationMS,
	)

	return &dto.GenerateTimetableResponse{
		RunID:          run.ID,
		Status:         string(run.Status),
		Entries:        result.Entries,
		Warnings:       result.Warnings,
		Summary:        result.Summary,
		EntriesCreated: run.EntriesCreated,
		DurationMS:     run.DurationMS,
	}, nil
}

func (s *TimetableService) generateInTx(ctx context.Context, run *models.TimetableRun, start time.Time) (result *scheduler.Result, err error) {
	filter := models.ClassFilter{Semester: run.Semester, Year: run.Year}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.writer.LockGeneration(ctx, tx); err != nil {
		return nil, err
	}
	loadStart := s.now()
	snapshot, err := s.loader.Load(ctx, tx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDBQuery("timetable_snapshot", s.now().Sub(loadStart))
	result, err = s.engine.Generate(snapshot)
	if err != nil {
		return nil, err
	}
	if _, err = s.writer.DeleteForClasses(ctx, tx, filter); err != nil {
		return nil, err
	}
	if err = s.writer.InsertBatch(ctx, tx, result.Entries); err != nil {
		return nil, err
	}

	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}
	run.Status = models.TimetableRunStatusSucceeded
	run.ClassesProcessed = result.Summary.ClassesProcessed
	run.CoursesScheduled = result.Summary.CoursesScheduled
	run.CoursesSkipped = result.Summary.CoursesSkipped
	run.EntriesCreated = len(result.Entries)
	run.Warnings = types.JSONText(warnings)
	run.Error = nil
	run.DurationMS = s.now().Sub(start).Milliseconds()
	if err = s.runs.Save(ctx, tx, run); err != nil {
		return nil, err
	}
	// Cleared again after commit: a read between here and the commit can
	// still cache the old rows.
	s.invalidateViews(ctx, run.ID)
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

func (s *TimetableService) invalidateViews(ctx context.Context, runID string) {
	if err := s.cache.Invalidate(ctx, timetableCachePattern); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate timetable cache", "run_id", runID, "error", err)
	}
}

// recordFailure writes a FAILED run log outside the rolled back transaction.
func (s *TimetableService) recordFailure(ctx context.Context, run *models.TimetableRun, cause error, duration time.Duration) {
	msg := cause.Error()
	run.Status = models.TimetableRunStatusFailed
	run.ClassesProcessed = 0
	run.CoursesScheduled = 0
	run.CoursesSkipped = 0
	run.EntriesCreated = 0
	run.Warnings = nil
	run.Error = &msg
	run.DurationMS = duration.Milliseconds()

	log := s.logger.Sugar().With("run_id", run.ID, "semester", run.Semester)
	log.Errorw("timetable generation failed", "error", cause)
	s.metrics.ObserveGenerationRun(string(models.TimetableRunStatusFailed), duration, 0)
	if err := s.runs.Save(context.WithoutCancel(ctx), nil, run); err != nil {
		log.Warnw("failed to record failed timetable run", "error", err)
	}
}

func mapGenerationError(err error) error {
	if errors.Is(err, scheduler.ErrInvalidSnapshot) {
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "reference data cannot support timetable generation")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
}

// TimetableWorker bridges queued runs to TimetableService.
type TimetableWorker struct {
	service *TimetableService
	logger  *zap.Logger
}

// NewTimetableWorker constructs a worker.
func NewTimetableWorker(service *TimetableService, logger *zap.Logger) *TimetableWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableWorker{service: service, logger: logger}
}

// Handle processes a queue job. Runs rejected for their reference data are not retried.
func (w *TimetableWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != TimetableJobType {
		return jobs.Permanent(fmt.Errorf("unsupported job type %q", job.Type))
	}
	run, err := w.service.runs.FindByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(fmt.Errorf("timetable run %s not found", job.ID))
		}
		return err
	}
	if run.Status == models.TimetableRunStatusSucceeded {
		w.logger.Sugar().Infow("timetable run already completed", "run_id", run.ID)
		return nil
	}
	if _, err := w.service.execute(ctx, run); err != nil {
		if errors.Is(err, scheduler.ErrInvalidSnapshot) {
			return jobs.Permanent(err)
		}
		return err
	}
	return nil
}
