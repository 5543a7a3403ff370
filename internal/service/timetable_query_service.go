package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// TimetableScope selects whose timetable a view shows.
type TimetableScope string

const (
	ScopeClass   TimetableScope = "class"
	ScopeFaculty TimetableScope = "faculty"
	ScopeRoom    TimetableScope = "room"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type timetableViewReader interface {
	ListByClass(ctx context.Context, classID int64) ([]models.TimetableView, error)
	ListByFaculty(ctx context.Context, facultyID int64) ([]models.TimetableView, error)
	ListByRoom(ctx context.Context, roomNo string) ([]models.TimetableView, error)
}

type classLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

type facultyLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Faculty, error)
}

type classroomLookup interface {
	FindByRoomNo(ctx context.Context, roomNo string) (*models.Classroom, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// TimetableView is a titled, ordered set of entries.
type TimetableView struct {
	Title   string                 `json:"title"`
	Entries []models.TimetableView `json:"entries"`
}

// ExportFile is a rendered timetable ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TimetableQueryService serves cached class, faculty and room timetables.
type TimetableQueryService struct {
	views   timetableViewReader
	classes classLookup
	faculty facultyLookup
	rooms   classroomLookup
	cache   *CacheService
	csv     datasetRenderer
	pdf     datasetRenderer
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTimetableQueryService constructs the read side of the timetable.
func NewTimetableQueryService(views timetableViewReader, classes classLookup, faculty facultyLookup, rooms classroomLookup, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TimetableQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableQueryService{
		views:   views,
		classes: classes,
		faculty: faculty,
		rooms:   rooms,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ttl:     ttl,
		logger:  logger,
	}
}

// View returns the timetable for the scope and id, and whether it came from cache.
func (s *TimetableQueryService) View(ctx context.Context, scope TimetableScope, id string) (*TimetableView, bool, error) {
	id = strings.TrimSpace(id)
	key, err := viewCacheKey(scope, id)
	if err != nil {
		return nil, false, err
	}

	view, hit, err := Remember(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*TimetableView, error) {
		return s.load(ctx, scope, id)
	})
	if err != nil {
		return nil, false, err
	}
	if !hit {
		s.logger.Sugar().Debugw("timetable view loaded", "key", key, "entries", len(view.Entries))
	}
	return view, hit, nil
}

// Export renders the timetable as CSV or PDF.
func (s *TimetableQueryService) Export(ctx context.Context, scope TimetableScope, id, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	view, _, err := s.View(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Title: view.Title, Rows: exportRows(view.Entries)}

	file := &ExportFile{Filename: exportFilename(scope, id, format)}
	switch format {
	case FormatPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(dataset)
	default:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	return file, nil
}

func (s *TimetableQueryService) load(ctx context.Context, scope TimetableScope, id string) (*TimetableView, error) {
	var (
		title   string
		entries []models.TimetableView
		err     error
	)
	switch scope {
	case ScopeClass:
		classID, _ := strconv.ParseInt(id, 10, 64)
		class, findErr := s.classes.FindByID(ctx, classID)
		if findErr != nil {
			return nil, lookupError(findErr, "class")
		}
		title = fmt.Sprintf("Class %d - Year %d Section %s, Semester %d", class.ID, class.Year, class.Section, class.Semester)
		entries, err = s.views.ListByClass(ctx, classID)
	case ScopeFaculty:
		facultyID, _ := strconv.ParseInt(id, 10, 64)
		member, findErr := s.faculty.FindByID(ctx, facultyID)
		if findErr != nil {
			return nil, lookupError(findErr, "faculty")
		}
		title = fmt.Sprintf("Faculty %s", member.Name)
		entries, err = s.views.ListByFaculty(ctx, facultyID)
	case ScopeRoom:
		room, findErr := s.rooms.FindByRoomNo(ctx, id)
		if findErr != nil {
			return nil, lookupError(findErr, "classroom")
		}
		title = fmt.Sprintf("Room %s (%s, %d seats)", room.RoomNo, room.Type, room.Capacity)
		entries, err = s.views.ListByRoom(ctx, id)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return &TimetableView{Title: title, Entries: entries}, nil
}

func viewCacheKey(scope TimetableScope, id string) (string, error) {
	id = strings.TrimSpace(id)
	switch scope {
	case ScopeClass, ScopeFaculty:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s id", scope))
		}
		return fmt.Sprintf("timetable:%s:%d", scope, n), nil
	case ScopeRoom:
		if id == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "room number is required")
		}
		return fmt.Sprintf("timetable:room:%s", id), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timetable scope %q", scope))
	}
}

func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func exportRows(entries []models.TimetableView) []export.Row {
	rows := make([]export.Row, 0, len(entries))
	for _, v := range entries {
		rows = append(rows, export.Row{
			Day:        v.DayOfWeek,
			StartTime:  clockTime(v.StartTime),
			EndTime:    clockTime(v.EndTime),
			Class:      fmt.Sprintf("%d%s", v.Year, v.Section),
			CourseCode: v.CourseCode,
			CourseName: v.CourseName,
			CourseType: string(v.CourseType),
			Faculty:    v.FacultyName,
			Room:       v.RoomNo,
		})
	}
	return rows
}

// clockTime trims seconds from Postgres TIME values.
func clockTime(clock models.Clock) string {
	value := string(clock)
	if len(value) == len("15:04:05") && strings.Count(value, ":") == 2 {
		return value[:5]
	}
	return value
}

func exportFilename(scope TimetableScope, id, format string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(id))
	return fmt.Sprintf("timetable-%s-%s.%s", scope, safe, format)
}
