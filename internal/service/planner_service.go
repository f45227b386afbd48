package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/dto"
	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
)

type catalogReader interface {
	ListByCodes(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
}

type planWriter interface {
	Save(ctx context.Context, plan *models.Plan) error
}

// PlannerConfig bounds the enumeration. Both limits are latency guards:
// MaxCombinations truncates the Cartesian search space instead of failing,
// MaxPlansPerCall caps accepted plans per call.
type PlannerConfig struct {
	MaxCombinations int
	MaxPlansPerCall int
}

// PlannerService enumerates conflict-free course combinations and wraps
// them as scored plans.
type PlannerService struct {
	catalog   catalogReader
	plans     planWriter
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       PlannerConfig
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(catalog catalogReader, plans planWriter, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg PlannerConfig) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCombinations <= 0 {
		cfg.MaxCombinations = 5000
	}
	if cfg.MaxPlansPerCall <= 0 {
		cfg.MaxPlansPerCall = 6
	}
	return &PlannerService{
		catalog:   catalog,
		plans:     plans,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// GeneratePlans loads the matching catalog sections and enumerates plans.
// An empty result is a valid "no feasible schedule" answer, not an error.
func (s *PlannerService) GeneratePlans(ctx context.Context, userID string, req dto.GeneratePlansRequest) ([]models.Plan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan generation payload")
	}

	sections, err := s.catalog.ListByCodes(ctx, models.CourseFilter{Codes: req.Codes, Prodi: req.Prodi, TermID: req.TermID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course catalog")
	}

	limit := req.PlanLimit
	if limit <= 0 {
		limit = s.cfg.MaxPlansPerCall
	}

	plans := EnumeratePlans(sections, req.Codes, limit, s.cfg.MaxCombinations, s.logger)
	s.metrics.ObserveGeneration(len(sections), len(plans))

	if req.Persist && s.plans != nil {
		for i := range plans {
			plans[i].UserID = userID
			if err := s.plans.Save(ctx, &plans[i]); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated plan")
			}
		}
	}

	return plans, nil
}

// EnumeratePlans is the pure enumeration core: group the catalog by
// selected code, expand the Cartesian product incrementally under the
// combination ceiling, filter conflicting combinations and score the
// survivors. It is stateless and deterministic for identical inputs;
// only the generated plan ids differ between runs.
func EnumeratePlans(catalog []models.Course, selectedCodes []string, planLimit, maxCombinations int, logger *zap.Logger) []models.Plan {
	if logger == nil {
		logger = zap.NewNop()
	}

	buckets := groupSelectedSections(catalog, selectedCodes, logger)
	if len(buckets) == 0 {
		return []models.Plan{}
	}

	// Incremental Cartesian expansion. When extending the next code
	// would exceed the ceiling, expansion stops: the search space is
	// truncated rather than unbounded, trading exhaustiveness for
	// bounded latency. Catalog order therefore decides which
	// combinations survive truncation.
	combinations := [][]models.Course{{}}
	for i, bucket := range buckets {
		next := make([][]models.Course, 0, len(combinations)*len(bucket))
		for _, combination := range combinations {
			for _, section := range bucket {
				extended := make([]models.Course, len(combination), len(combination)+1)
				copy(extended, combination)
				next = append(next, append(extended, section))
			}
		}
		combinations = next

		if len(combinations) > maxCombinations && i < len(buckets)-1 {
			logger.Warn("combination ceiling exceeded, truncating enumeration",
				zap.Int("expanded_codes", i+1),
				zap.Int("total_codes", len(buckets)),
				zap.Int("combinations", len(combinations)),
				zap.Int("ceiling", maxCombinations),
			)
			break
		}
	}

	plans := make([]models.Plan, 0, planLimit)
	for _, combination := range combinations {
		if len(combination) == 0 {
			continue
		}
		if report := CheckConflicts(combination); !report.Valid {
			continue
		}

		score, labels := ScoreCombination(combination)
		plans = append(plans, models.Plan{
			ID:       uuid.NewString(),
			Name:     fmt.Sprintf("Plan %d", len(plans)+1),
			Courses:  combination,
			Score:    score,
			Analysis: strings.Join(labels, ", "),
			Source:   models.PlanSourceGenerated,
		})
		if len(plans) >= planLimit {
			break
		}
	}

	return plans
}

// groupSelectedSections filters the catalog to the selected codes and
// groups sections per code, preserving both the selection order and the
// catalog order within each bucket. Selected codes without any catalog
// section are dropped with a warning, so a resulting plan may omit them.
func groupSelectedSections(catalog []models.Course, selectedCodes []string, logger *zap.Logger) [][]models.Course {
	byCode := make(map[string][]models.Course, len(selectedCodes))
	for _, section := range catalog {
		byCode[section.Code] = append(byCode[section.Code], section)
	}

	seen := make(map[string]bool, len(selectedCodes))
	buckets := make([][]models.Course, 0, len(selectedCodes))
	for _, code := range selectedCodes {
		if seen[code] {
			continue
		}
		seen[code] = true
		sections, ok := byCode[code]
		if !ok || len(sections) == 0 {
			logger.Warn("selected course has no catalog sections", zap.String("code", code))
			continue
		}
		buckets = append(buckets, sections)
	}

	return buckets
}
