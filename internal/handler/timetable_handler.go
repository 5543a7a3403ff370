package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateAsyncResponse, error)
	ListRuns(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error)
	GetRun(ctx context.Context, id string) (*models.TimetableRun, error)
	Validate(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error)
}

type timetableReader interface {
	View(ctx context.Context, scope service.TimetableScope, id string) (*service.TimetableView, bool, error)
	Export(ctx context.Context, scope service.TimetableScope, id, format string) (*service.ExportFile, error)
}

// TimetableHandler exposes generation, run log, view and export endpoints.
type TimetableHandler struct {
	generator timetableGenerator
	reader    timetableReader
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator timetableGenerator, reader timetableReader) *TimetableHandler {
	return &TimetableHandler{generator: generator, reader: reader}
}

// Generate godoc
// @Summary Regenerate the timetable of a semester
// @Description Replaces every entry of the selected classes in one transaction. Allocation problems are returned as warnings.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation scope"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateAsync godoc
// @Summary Queue a timetable regeneration
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation scope"
// @Success 202 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /timetable/generate/async [post]
func (h *TimetableHandler) GenerateAsync(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid generate payload"))
		return
	}
	result, err := h.generator.GenerateAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// ListRuns godoc
// @Summary List generation runs
// @Tags Timetable
// @Produce json
// @Param semester query int false "Semester"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	var query dto.TimetableRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	runs, pagination, err := h.generator.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// GetRun godoc
// @Summary Get one generation run
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.generator.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Validate godoc
// @Summary Check candidate entries against every timetable invariant
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTimetableRequest true "Candidate entries"
// @Success 200 {object} response.Envelope
// @Router /timetable/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid validate payload"))
		return
	}
	result, err := h.generator.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClassTimetable godoc
// @Summary Weekly timetable of a class
// @Tags Timetable
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/class/{id} [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	h.view(c, service.ScopeClass, c.Param("id"))
}

// FacultyTimetable godoc
// @Summary Weekly timetable of a faculty member
// @Tags Timetable
// @Produce json
// @Param id path int true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/faculty/{id} [get]
func (h *TimetableHandler) FacultyTimetable(c *gin.Context) {
	h.view(c, service.ScopeFaculty, c.Param("id"))
}

// RoomTimetable godoc
// @Summary Weekly timetable of a classroom
// @Tags Timetable
// @Produce json
// @Param roomNo path string true "Room number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/room/{roomNo} [get]
func (h *TimetableHandler) RoomTimetable(c *gin.Context) {
	h.view(c, service.ScopeRoom, c.Param("roomNo"))
}

// ExportClass godoc
// @Summary Export a class timetable
// @Tags Timetable
// @Produce octet-stream
// @Param id path int true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /timetable/class/{id}/export [get]
func (h *TimetableHandler) ExportClass(c *gin.Context) {
	h.export(c, service.ScopeClass, c.Param("id"))
}

// ExportFaculty godoc
// @Summary Export a faculty timetable
// @Tags Timetable
// @Produce octet-stream
// @Param id path int true "Faculty ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /timetable/faculty/{id}/export [get]
func (h *TimetableHandler) ExportFaculty(c *gin.Context) {
	h.export(c, service.ScopeFaculty, c.Param("id"))
}

// ExportRoom godoc
// @Summary Export a classroom timetable
// @Tags Timetable
// @Produce octet-stream
// @Param roomNo path string true "Room number"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /timetable/room/{roomNo}/export [get]
func (h *TimetableHandler) ExportRoom(c *gin.Context) {
	h.export(c, service.ScopeRoom, c.Param("roomNo"))
}

func (h *TimetableHandler) view(c *gin.Context, scope service.TimetableScope, id string) {
	view, cacheHit, err := h.reader.View(c.Request.Context(), scope, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

func (h *TimetableHandler) export(c *gin.Context, scope service.TimetableScope, id string) {
	var query dto.TimetableExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid export query"))
		return
	}
	file, err := h.reader.Export(c.Request.Context(), scope, id, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
