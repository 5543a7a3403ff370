package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Greedy timetable generation, run log, views and exports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheRepo, closeCache := newCacheRepository(cfg, logr)
	defer closeCache()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, true)

	classRepo := repository.NewClassRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	runRepo := repository.NewTimetableRunRepository(db)

	loader := service.NewSnapshotLoader(classRepo, courseRepo, facultyRepo, classroomRepo, slotRepo, timetableRepo)
	engine := scheduler.NewEngine(scheduler.Heuristics{
		FacultyOrder: scheduler.FacultyOrder(cfg.Timetable.FacultyOrder),
		RoomOrder:    scheduler.RoomOrder(cfg.Timetable.RoomOrder),
	})
	timetableSvc := service.NewTimetableService(db, loader, timetableRepo, runRepo, engine, cacheSvc, metricsSvc, validator.New(), logr)
	querySvc := service.NewTimetableQueryService(timetableRepo, classRepo, facultyRepo, classroomRepo, cacheSvc, cfg.Timetable.CacheTTL, logr)

	worker := service.NewTimetableWorker(timetableSvc, logr)
	queue := jobs.NewQueue("timetable", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Timetable.AsyncWorkers,
		MaxRetries: cfg.Timetable.AsyncRetries,
		RetryDelay: cfg.Timetable.AsyncRetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	timetableSvc.SetDispatcher(queue)
	metricsSvc.TrackQueueDepth(queue.Pending)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/system/metrics", metricsHandler.Summary)
	registerTimetableRoutes(api, handler.NewTimetableHandler(timetableSvc, querySvc),
		middleware.RateLimit(rate.Limit(cfg.Timetable.GenerateRate), cfg.Timetable.GenerateBurst))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "api_prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

func registerTimetableRoutes(api *gin.RouterGroup, h *handler.TimetableHandler, limit gin.HandlerFunc) {
	timetable := api.Group("/timetable")
	timetable.POST("/generate", limit, h.Generate)
	timetable.POST("/generate/async", limit, h.GenerateAsync)
	timetable.POST("/validate", h.Validate)
	timetable.GET("/runs", h.ListRuns)
	timetable.GET("/runs/:id", h.GetRun)
	timetable.GET("/class/:id", h.ClassTimetable)
	timetable.GET("/class/:id/export", h.ExportClass)
	timetable.GET("/faculty/:id", h.FacultyTimetable)
	timetable.GET("/faculty/:id/export", h.ExportFaculty)
	timetable.GET("/room/:roomNo", h.RoomTimetable)
	timetable.GET("/room/:roomNo/export", h.ExportRoom)
}

// newCacheRepository prefers Redis and falls back to the in-process cache.
func newCacheRepository(cfg *config.Config, logr *zap.Logger) (service.CacheRepository, func()) {
	memory := func() (service.CacheRepository, func()) {
		ttl := cfg.Timetable.CacheTTL
		return repository.NewMemoryCacheRepository(ttl, 2*ttl), func() {}
	}
	if !cfg.Redis.Enabled {
		logr.Sugar().Infow("redis disabled, using in-process cache")
		return memory()
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, using in-process cache", "error", err)
		return memory()
	}
	repo := repository.NewCacheRepository(client, cfg.Redis.KeyPrefix, logr)
	return repo, func() { _ = repo.Close() }
}
