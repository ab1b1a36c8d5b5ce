package api

import (
	"time"

	"github.com/limaJavier/schooltimetable/internal/service"
	"github.com/limaJavier/schooltimetable/pkg/model"
)

// SolveRequest carries a school input as produced by the data-entry layer.
type SolveRequest struct {
	Input   map[string]any `json:"input" validate:"required"`
	Options SolveOptions   `json:"options"`
}

type SolveOptions struct {
	Strategy         string `json:"strategy" validate:"omitempty,oneof=embedded postponed"`
	TimeLimitSeconds int    `json:"time_limit_seconds" validate:"gte=0,lte=3600"`
}

func (o SolveOptions) toService() service.SolveOptions {
	return service.SolveOptions{
		Strategy:  o.Strategy,
		TimeLimit: time.Duration(o.TimeLimitSeconds) * time.Second,
	}
}

// VerifyRequest checks an edited timetable against its school input.
type VerifyRequest struct {
	Input     map[string]any `json:"input" validate:"required"`
	Timetable []model.Lesson `json:"timetable" validate:"required,dive"`
}
