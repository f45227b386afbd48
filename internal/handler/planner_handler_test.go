package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/krayon-edu/krs-planner-api/internal/dto"
	internalmiddleware "github.com/krayon-edu/krs-planner-api/internal/middleware"
	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
)

type plannerMock struct {
	captured dto.GeneratePlansRequest
	plans    []models.Plan
	err      error
}

func (m *plannerMock) GeneratePlans(_ context.Context, _ string, req dto.GeneratePlansRequest) ([]models.Plan, error) {
	m.captured = req
	return m.plans, m.err
}

type smartMock struct {
	res *dto.SmartGenerateResponse
	err error
}

func (m *smartMock) SmartGenerate(_ context.Context, _ string, _ dto.SmartGenerateRequest) (*dto.SmartGenerateResponse, error) {
	return m.res, m.err
}

func (m *smartMock) Quota(_ context.Context, _ string) (*dto.QuotaResponse, error) {
	return &dto.QuotaResponse{Credits: 3, CooldownSeconds: 30}, nil
}

func authedContext(t *testing.T, w *httptest.ResponseRecorder, method, path string, body []byte) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	return c
}

func TestPlannerHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerMock{plans: []models.Plan{{ID: "p1", Name: "Plan 1"}}}
	handler := &PlannerHandler{planner: mockSvc}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/plans/generate", []byte(`{"codes":["CS101","MATH201"]}`))

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"CS101", "MATH201"}, mockSvc.captured.Codes)

	var envelope struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 1, envelope.Data.Count)
}

func TestPlannerHandlerGenerateBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{planner: &plannerMock{}}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/plans/generate", []byte(`{"codes":`))

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlannerHandlerGenerateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{planner: &plannerMock{}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/plans/generate", bytes.NewReader([]byte(`{"codes":["CS101"]}`)))
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlannerHandlerSmartGenerateDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{planner: &plannerMock{}}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/plans/smart-generate", []byte(`{"codes":["CS101"]}`))

	handler.SmartGenerate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlannerHandlerSmartGeneratePropagatesGatewayErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{
		planner: &plannerMock{},
		smart:   &smartMock{err: appErrors.ErrInsufficientCredits},
	}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/plans/smart-generate", []byte(`{"codes":["CS101"]}`))

	handler.SmartGenerate(c)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestPlannerHandlerSmartGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{
		planner: &plannerMock{},
		smart:   &smartMock{res: &dto.SmartGenerateResponse{PlanIDs: []string{"p1", "p2"}, Count: 2}},
	}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodPost, "/plans/smart-generate", []byte(`{"codes":["CS101"]}`))

	handler.SmartGenerate(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPlannerHandlerQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{planner: &plannerMock{}, smart: &smartMock{}}

	w := httptest.NewRecorder()
	c := authedContext(t, w, http.MethodGet, "/plans/smart-generate/quota", nil)

	handler.Quota(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.QuotaResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 3, envelope.Data.Credits)
}
