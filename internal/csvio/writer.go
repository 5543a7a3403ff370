package csvio

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

type warningRow struct {
	Kind       string `csv:"kind"`
	ClassID    int64  `csv:"class_id"`
	CourseCode string `csv:"course_code"`
	Message    string `csv:"message"`
}

// WriteEntries writes entries with a header row.
func WriteEntries(w io.Writer, entries []models.TimetableEntry) error {
	rows := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, EntryRow{
			ClassID:    e.ClassID,
			CourseCode: e.CourseCode,
			FacultyID:  e.FacultyID,
			RoomNo:     e.RoomNo,
			SlotID:     e.SlotID,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	return nil
}

// WriteEntriesFile replaces path with the entries.
func WriteEntriesFile(path string, entries []models.TimetableEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteEntries(f, entries); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteWarnings writes allocation warnings with a header row.
func WriteWarnings(w io.Writer, warnings []scheduler.Warning) error {
	rows := make([]warningRow, 0, len(warnings))
	for _, warning := range warnings {
		rows = append(rows, warningRow{
			Kind:       string(warning.Kind),
			ClassID:    warning.ClassID,
			CourseCode: warning.CourseCode,
			Message:    warning.Message,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write warnings: %w", err)
	}
	return nil
}
