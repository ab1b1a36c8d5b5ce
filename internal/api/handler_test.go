package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limaJavier/schooltimetable/internal/apperrors"
	"github.com/limaJavier/schooltimetable/internal/metrics"
	"github.com/limaJavier/schooltimetable/internal/requestid"
	"github.com/limaJavier/schooltimetable/internal/service"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"
)

type timetableServiceMock struct {
	input     map[string]any
	options   service.SolveOptions
	timetable []model.Lesson
	err       error
}

func (m *timetableServiceMock) Solve(ctx context.Context, raw map[string]any, opts service.SolveOptions) (*service.Solution, error) {
	m.input, m.options = raw, opts
	if m.err != nil {
		return nil, m.err
	}
	return &service.Solution{
		Result: model.Result{
			Timetable: []model.Lesson{{Class: "9A", Course: "Math", Teacher: "Ada", Room: "R1", Day: "Monday", Hour: 1}},
			Status:    model.StatusOptimal,
			Message:   model.MessageSolved,
		},
		Strategy: model.StrategyEmbedded,
	}, nil
}

func (m *timetableServiceMock) Verify(ctx context.Context, raw map[string]any, timetable []model.Lesson) (*service.Report, error) {
	m.input, m.timetable = raw, timetable
	return &service.Report{Valid: true, Conflicts: []model.Conflict{}, Shortfalls: []model.Shortfall{}}, m.err
}

func newTestRouter(svc timetableService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewTimetableHandler(svc, nil), metrics.New(), zap.NewNop(), "/api/v1")
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestid.HeaderKey, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *apperrors.Error `json:"error"`
	Meta  map[string]any   `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSolveHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockSvc := &timetableServiceMock{}
		router := newTestRouter(mockSvc)

		w := post(router, "/api/v1/timetables", `{"input":{"classes":["9A"]},"options":{"strategy":"postponed","time_limit_seconds":30}}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{"9A"}, mockSvc.input["classes"])
		assert.Equal(t, service.SolveOptions{Strategy: "postponed", TimeLimit: 30 * time.Second}, mockSvc.options)

		body := decodeEnvelope(t, w)
		assert.Nil(t, body.Error)
		assert.Equal(t, "req-42", body.Meta["request_id"])
		assert.Equal(t, true, body.Meta["solved"])

		var solution service.Solution
		require.NoError(t, json.Unmarshal(body.Data, &solution))
		assert.Equal(t, model.StatusOptimal, solution.Status)
		assert.Len(t, solution.Timetable, 1)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		w := post(newTestRouter(&timetableServiceMock{}), "/api/v1/timetables", `{"input":`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ErrInvalidJSON.Code, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		cases := map[string]string{
			"Missing input":     `{"options":{}}`,
			"Unknown strategy":  `{"input":{},"options":{"strategy":"hybrid"}}`,
			"Negative deadline": `{"input":{},"options":{"time_limit_seconds":-1}}`,
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				mockSvc := &timetableServiceMock{}
				w := post(newTestRouter(mockSvc), "/api/v1/timetables", payload)

				require.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, apperrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
				assert.Nil(t, mockSvc.input)
			})
		}
	})

	t.Run("Service errors", func(t *testing.T) {
		solverErr := apperrors.Wrap(errors.New("exit status 1"), apperrors.ErrSolver.Code, apperrors.ErrSolver.Status, apperrors.ErrSolver.Message)
		w := post(newTestRouter(&timetableServiceMock{err: solverErr}), "/api/v1/timetables", `{"input":{}}`)

		require.Equal(t, http.StatusBadGateway, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, apperrors.ErrSolver.Code, body.Error.Code)
		assert.Empty(t, body.Data)
	})
}

func TestVerifyHandler(t *testing.T) {
	mockSvc := &timetableServiceMock{}
	router := newTestRouter(mockSvc)

	w := post(router, "/api/v1/timetables/verify", `{"input":{},"timetable":[{"class":"9A","course":"Math","teacher":"Ada","room":"R1","day":"Monday","hour":2}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []model.Lesson{{Class: "9A", Course: "Math", Teacher: "Ada", Room: "R1", Day: "Monday", Hour: 2}}, mockSvc.timetable)

	w = post(router, "/api/v1/timetables/verify", `{"input":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&timetableServiceMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	withoutMetrics := NewRouter(NewTimetableHandler(&timetableServiceMock{}, nil), nil, zap.NewNop(), "/api/v1")
	w = httptest.NewRecorder()
	withoutMetrics.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSolveEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewTimetableService(func() (sat.SATSolver, error) { return sat.NewGiniSolver(), nil }, nil, nil,
		service.Config{TimeLimit: time.Minute}, nil)
	router := NewRouter(NewTimetableHandler(svc, nil), nil, zap.NewNop(), "/api/v1")

	w := post(router, "/api/v1/timetables", `{"input":{
		"teachers":[{"name":"Ada","max_hours_per_day":"8"}],
		"classes":["9A"],
		"class_lessons":{"9A":{"Math":3}},
		"assignments":{"9A":{"Math":"Ada"}},
		"lunch_break_hour":"none"
	}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var solution service.Solution
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &solution))
	assert.Equal(t, model.StatusOptimal, solution.Status)
	assert.Len(t, solution.Timetable, 3)
}
