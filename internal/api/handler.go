package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/limaJavier/schooltimetable/internal/apperrors"
	"github.com/limaJavier/schooltimetable/internal/service"
	"github.com/limaJavier/schooltimetable/pkg/model"
)

type timetableService interface {
	Solve(ctx context.Context, raw map[string]any, opts service.SolveOptions) (*service.Solution, error)
	Verify(ctx context.Context, raw map[string]any, timetable []model.Lesson) (*service.Report, error)
}

// TimetableHandler exposes the timetable endpoints.
type TimetableHandler struct {
	service  timetableService
	validate *validator.Validate
}

func NewTimetableHandler(svc timetableService, validate *validator.Validate) *TimetableHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableHandler{service: svc, validate: validate}
}

// Solve builds a timetable. Infeasible inputs answer 200 with the status and hints of the result.
func (h *TimetableHandler) Solve(c *gin.Context) {
	var req SolveRequest
	if !h.bind(c, &req) {
		return
	}

	start := time.Now()
	solution, err := h.service.Solve(c.Request.Context(), req.Input, req.Options.toService())
	if err != nil {
		Error(c, err)
		return
	}
	JSON(c, http.StatusOK, solution, map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"solved":      solution.Solved(),
	})
}

func (h *TimetableHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if !h.bind(c, &req) {
		return
	}

	report, err := h.service.Verify(c.Request.Context(), req.Input, req.Timetable)
	if err != nil {
		Error(c, err)
		return
	}
	JSON(c, http.StatusOK, report, nil)
}

func (h *TimetableHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TimetableHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		Error(c, apperrors.Wrap(err, apperrors.ErrInvalidJSON.Code, apperrors.ErrInvalidJSON.Status, apperrors.ErrInvalidJSON.Message))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperrors.ErrValidation.Message
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		messages = append(messages, fmt.Sprintf("%s failed on %s", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return strings.Join(messages, "; ")
}
