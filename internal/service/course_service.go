package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
)

type courseBrowser interface {
	List(ctx context.Context, filter models.CourseFilter, page, pageSize int) ([]models.Course, int, error)
}

// CourseService exposes catalog browsing.
type CourseService struct {
	repo   courseBrowser
	logger *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseBrowser, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, logger: logger}
}

// List returns catalog sections and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter, page, pageSize int) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
