package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/csvio"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "timetable-cli:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("timetable-cli", flag.ContinueOnError)
	dataDir := fs.String("data", ".", "directory holding the snapshot CSV files")
	semester := fs.Int("semester", 0, "semester to generate (required)")
	year := fs.Int("year", 0, "restrict generation to one academic year")
	out := fs.String("out", "entries.csv", "output file for generated entries")
	warningsOut := fs.String("warnings", "", "optional output file for allocation warnings")
	delim := fs.String("delim", ",", "CSV field delimiter")
	facultyOrder := fs.String("faculty-order", cfg.Timetable.FacultyOrder, "least_loaded or most_capacity")
	roomOrder := fs.String("room-order", cfg.Timetable.RoomOrder, "smallest_first or largest_first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *semester <= 0 {
		return fmt.Errorf("-semester is required")
	}
	if len([]rune(*delim)) != 1 {
		return fmt.Errorf("-delim must be a single character")
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	filter := models.ClassFilter{Semester: *semester}
	if *year > 0 {
		filter.Year = year
	}
	snapshot, err := csvio.NewLoader(*dataDir, []rune(*delim)[0]).LoadSnapshot(filter)
	if err != nil {
		return err
	}

	engine := scheduler.NewEngine(scheduler.Heuristics{
		FacultyOrder: scheduler.FacultyOrder(*facultyOrder),
		RoomOrder:    scheduler.RoomOrder(*roomOrder),
	})
	start := time.Now()
	result, err := engine.Generate(snapshot)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	duration := time.Since(start)

	for _, w := range result.Warnings {
		log.Warn("timetable allocation warning",
			zap.String("kind", string(w.Kind)),
			zap.Int64("class_id", w.ClassID),
			zap.String("course_code", w.CourseCode),
			zap.String("message", w.Message),
		)
	}
	if err := csvio.WriteEntriesFile(*out, result.Entries); err != nil {
		return err
	}
	if *warningsOut != "" {
		f, err := os.Create(*warningsOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", *warningsOut, err)
		}
		if err := csvio.WriteWarnings(f, result.Warnings); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	log.Info("timetable generated",
		zap.Int("semester", *semester),
		zap.Int("classes_processed", result.Summary.ClassesProcessed),
		zap.Int("courses_scheduled", result.Summary.CoursesScheduled),
		zap.Int("courses_skipped", result.Summary.CoursesSkipped),
		zap.Int("entries", len(result.Entries)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", duration),
		zap.String("out", *out),
	)
	fmt.Printf("classes=%d scheduled=%d skipped=%d entries=%d warnings=%d\n",
		result.Summary.ClassesProcessed, result.Summary.CoursesScheduled, result.Summary.CoursesSkipped,
		len(result.Entries), len(result.Warnings))
	return nil
}
