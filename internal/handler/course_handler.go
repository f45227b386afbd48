package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/krayon-edu/krs-planner-api/internal/models"
	"github.com/krayon-edu/krs-planner-api/internal/service"
	"github.com/krayon-edu/krs-planner-api/pkg/response"
)

// CourseHandler exposes catalog browsing endpoints.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary Browse the course catalog
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param code query string false "Course code"
// @Param prodi query string false "Study program"
// @Param termId query string false "Term ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Prodi:  c.Query("prodi"),
		TermID: c.Query("termId"),
	}
	if code := c.Query("code"); code != "" {
		filter.Codes = []string{code}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	courses, pagination, err := h.service.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, pagination)
}
