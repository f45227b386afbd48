package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krayon-edu/krs-planner-api/internal/dto"
	"github.com/krayon-edu/krs-planner-api/internal/models"
	"github.com/krayon-edu/krs-planner-api/internal/service"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
	"github.com/krayon-edu/krs-planner-api/pkg/response"
)

type planGenerator interface {
	GeneratePlans(ctx context.Context, userID string, req dto.GeneratePlansRequest) ([]models.Plan, error)
}

type smartGenerator interface {
	SmartGenerate(ctx context.Context, callerID string, req dto.SmartGenerateRequest) (*dto.SmartGenerateResponse, error)
	Quota(ctx context.Context, callerID string) (*dto.QuotaResponse, error)
}

// PlannerHandler exposes plan generation endpoints.
type PlannerHandler struct {
	planner planGenerator
	smart   smartGenerator
}

// NewPlannerHandler constructs the handler. The smart service may be nil
// when the AI gateway is disabled.
func NewPlannerHandler(planner *service.PlannerService, smart *service.AIPlannerService) *PlannerHandler {
	h := &PlannerHandler{planner: planner}
	if smart != nil {
		h.smart = smart
	}
	return h
}

// Generate godoc
// @Summary Enumerate conflict-free plans for selected courses
// @Description Builds up to the configured plan cap from all conflict-free section combinations. An empty list means no feasible schedule exists.
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GeneratePlansRequest true "Generate plans payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans/generate [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GeneratePlansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	plans, err := h.planner.GeneratePlans(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"plans": plans, "count": len(plans)}, nil)
}

// SmartGenerate godoc
// @Summary Generate AI-refined plan variants
// @Description Runs the credit-gated AI refinement pipeline and persists the resulting plan variants.
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SmartGenerateRequest true "Smart generate payload"
// @Success 200 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /plans/smart-generate [post]
func (h *PlannerHandler) SmartGenerate(c *gin.Context) {
	if h.smart == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "smart generation is disabled"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SmartGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid smart generate payload"))
		return
	}

	res, err := h.smart.SmartGenerate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Quota godoc
// @Summary Remaining smart generation quota
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /plans/smart-generate/quota [get]
func (h *PlannerHandler) Quota(c *gin.Context) {
	if h.smart == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "smart generation is disabled"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.smart.Quota(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
