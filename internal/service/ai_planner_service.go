package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/dto"
	"github.com/krayon-edu/krs-planner-api/internal/llm"
	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
)

const smartGenerateSystemPrompt = `You are an academic advisor helping a university student pick class sections.
You receive a course catalog where every course has interchangeable sections, each with an "id".
Build exactly 3 named plan variants. Rules:
- Pick at most one section per course code.
- Sections in one variant must never overlap in time.
- Respect the student's stated credit ceiling and preferences.
- Reference sections ONLY by the "id" values given in the catalog. Never invent ids.
Respond with JSON only, shaped as:
{"plans":[{"name":"...","courseIds":["..."],"reason":"..."}]}`

type creditLedger interface {
	GetOrCreate(ctx context.Context, userID string, defaultCredits int) (*models.AIUsage, error)
	DecrementCredit(ctx context.Context, userID string) (int, error)
	RecordInvocation(ctx context.Context, userID string, at time.Time) error
}

type responseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AIPlannerConfig governs the smart-generate gateway behaviour.
type AIPlannerConfig struct {
	PrimaryModel   string
	FallbackModel  string
	Cooldown       time.Duration
	CacheTTL       time.Duration
	MaxVariants    int
	DefaultCredits int
}

// AIPlannerService orchestrates the AI refinement pipeline: quota and
// cooldown pre-flight, payload minification, response caching, the
// primary/fallback model chain, reconstruction and persistence.
type AIPlannerService struct {
	catalog   catalogReader
	plans     planWriter
	ledger    creditLedger
	cache     responseCache
	model     llm.Invoker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AIPlannerConfig
	now       func() time.Time
}

// NewAIPlannerService wires gateway dependencies.
func NewAIPlannerService(
	catalog catalogReader,
	plans planWriter,
	ledger creditLedger,
	cache responseCache,
	model llm.Invoker,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AIPlannerConfig,
) *AIPlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxVariants <= 0 {
		cfg.MaxVariants = 3
	}
	if cfg.DefaultCredits < 0 {
		cfg.DefaultCredits = 0
	}
	return &AIPlannerService{
		catalog:   catalog,
		plans:     plans,
		ledger:    ledger,
		cache:     cache,
		model:     model,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SmartGenerate runs one AI refinement pass for the caller. Pre-flight
// failures (unauthorized, no credits, cooldown) carry no side effects; a
// credit is consumed only after at least one reconstructed plan variant
// has been persisted.
func (s *AIPlannerService) SmartGenerate(ctx context.Context, callerID string, req dto.SmartGenerateRequest) (*dto.SmartGenerateResponse, error) {
	if callerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "caller identity required for smart generation")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid smart generation payload")
	}

	usage, err := s.ledger.GetOrCreate(ctx, callerID, s.cfg.DefaultCredits)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ai usage ledger")
	}
	if usage.Credits <= 0 {
		return nil, appErrors.ErrInsufficientCredits
	}
	if usage.LastInvokedAt != nil {
		elapsed := s.now().Sub(*usage.LastInvokedAt)
		if elapsed < s.cfg.Cooldown {
			remaining := int64((s.cfg.Cooldown - elapsed).Seconds()) + 1
			return nil, appErrors.Clone(appErrors.ErrRateLimited,
				fmt.Sprintf("smart generation cooldown active, retry in %ds", remaining))
		}
	}

	sections, err := s.catalog.ListByCodes(ctx, models.CourseFilter{Codes: req.Codes, Prodi: req.Prodi, TermID: req.TermID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course catalog")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no catalog sections match the selected courses")
	}

	compact := minifyCatalog(sections, req.Codes)
	cacheKey, err := deriveCacheKey(compact, req, s.cfg.PrimaryModel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive cache key")
	}

	var drafts dto.PlanDraftResponse
	cached := false
	switch cacheErr := s.cache.Get(ctx, cacheKey, &drafts); {
	case cacheErr == nil:
		cached = true
		s.metrics.RecordCacheLookup(true)
	case appErrors.FromError(cacheErr).Code == appErrors.ErrCacheMiss.Code:
		s.metrics.RecordCacheLookup(false)
	default:
		// Degraded cache is a miss, not a failure.
		s.logger.Warn("ai response cache lookup failed", zap.Error(cacheErr))
		s.metrics.RecordCacheLookup(false)
	}

	if !cached {
		drafts, err = s.invokeWithFallback(ctx, compact, req)
		if err != nil {
			return nil, err
		}
		if cacheErr := s.cache.Set(ctx, cacheKey, drafts, s.cfg.CacheTTL); cacheErr != nil {
			s.logger.Warn("failed to cache ai response", zap.Error(cacheErr))
		}
	}

	planIDs, err := s.reconstructAndPersist(ctx, callerID, sections, drafts)
	if err != nil {
		return nil, err
	}
	if len(planIDs) == 0 {
		// Zero usable variants: the caller received no value, so the
		// credit is explicitly not consumed.
		return nil, appErrors.ErrNoValidPlans
	}

	if _, err := s.ledger.DecrementCredit(ctx, callerID); err != nil {
		s.logger.Warn("failed to decrement ai credit", zap.String("user_id", callerID), zap.Error(err))
	}
	if err := s.ledger.RecordInvocation(ctx, callerID, s.now()); err != nil {
		s.logger.Warn("failed to record ai invocation time", zap.String("user_id", callerID), zap.Error(err))
	}

	return &dto.SmartGenerateResponse{PlanIDs: planIDs, Count: len(planIDs), Cached: cached}, nil
}

// Quota reports the caller's remaining credits and cooldown state.
func (s *AIPlannerService) Quota(ctx context.Context, callerID string) (*dto.QuotaResponse, error) {
	if callerID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	usage, err := s.ledger.GetOrCreate(ctx, callerID, s.cfg.DefaultCredits)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ai usage ledger")
	}

	resp := &dto.QuotaResponse{
		Credits:         usage.Credits,
		CooldownSeconds: int64(s.cfg.Cooldown.Seconds()),
	}
	if usage.LastInvokedAt != nil {
		if elapsed := s.now().Sub(*usage.LastInvokedAt); elapsed < s.cfg.Cooldown {
			resp.RemainingSeconds = int64((s.cfg.Cooldown - elapsed).Seconds()) + 1
		}
	}
	return resp, nil
}

// invokeWithFallback calls the primary model and retries exactly once
// against the fallback model with the identical prompt. The models are
// never attempted in parallel.
func (s *AIPlannerService) invokeWithFallback(ctx context.Context, compact []dto.CompactCourse, req dto.SmartGenerateRequest) (dto.PlanDraftResponse, error) {
	userPayload, err := buildUserPayload(compact, req)
	if err != nil {
		return dto.PlanDraftResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode model payload")
	}

	drafts, primaryErr := s.attemptModel(ctx, s.cfg.PrimaryModel, userPayload)
	if primaryErr == nil {
		return drafts, nil
	}
	s.logger.Warn("primary model failed, retrying with fallback",
		zap.String("primary", s.cfg.PrimaryModel),
		zap.String("fallback", s.cfg.FallbackModel),
		zap.Error(primaryErr),
	)

	drafts, fallbackErr := s.attemptModel(ctx, s.cfg.FallbackModel, userPayload)
	if fallbackErr != nil {
		return dto.PlanDraftResponse{}, appErrors.Wrap(fallbackErr, appErrors.ErrGenerationFailed.Code, appErrors.ErrGenerationFailed.Status, "both primary and fallback model calls failed")
	}
	return drafts, nil
}

// attemptModel performs one invocation and validates the structured
// output. Malformed output counts as a model failure so the fallback can
// take over.
func (s *AIPlannerService) attemptModel(ctx context.Context, model, userPayload string) (dto.PlanDraftResponse, error) {
	content, err := s.model.Invoke(ctx, model, smartGenerateSystemPrompt, userPayload)
	if err != nil {
		s.metrics.RecordModelInvocation(model, ModelOutcomeFailure)
		return dto.PlanDraftResponse{}, err
	}

	var drafts dto.PlanDraftResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &drafts); err != nil {
		s.metrics.RecordModelInvocation(model, ModelOutcomeFailure)
		return dto.PlanDraftResponse{}, fmt.Errorf("decode plan drafts (%s): %w", model, err)
	}
	if len(drafts.Plans) == 0 {
		s.metrics.RecordModelInvocation(model, ModelOutcomeFailure)
		return dto.PlanDraftResponse{}, fmt.Errorf("model %s returned zero plan variants", model)
	}

	s.metrics.RecordModelInvocation(model, ModelOutcomeSuccess)
	return drafts, nil
}

// reconstructAndPersist maps each draft's section ids back to full
// catalog sections, silently dropping ids the catalog does not know, and
// persists every variant that still has sections.
func (s *AIPlannerService) reconstructAndPersist(ctx context.Context, callerID string, sections []models.Course, drafts dto.PlanDraftResponse) ([]string, error) {
	byID := make(map[string]models.Course, len(sections))
	for _, section := range sections {
		byID[section.ID] = section
	}

	variants := drafts.Plans
	if len(variants) > s.cfg.MaxVariants {
		variants = variants[:s.cfg.MaxVariants]
	}

	planIDs := make([]string, 0, len(variants))
	for i, draft := range variants {
		resolved := make([]models.Course, 0, len(draft.CourseIDs))
		for _, id := range draft.CourseIDs {
			section, ok := byID[id]
			if !ok {
				s.logger.Warn("model referenced unknown section id", zap.String("section_id", id))
				continue
			}
			resolved = append(resolved, section)
		}
		if len(resolved) == 0 {
			continue
		}

		name := strings.TrimSpace(draft.Name)
		if name == "" {
			name = fmt.Sprintf("Smart Plan %d", i+1)
		}
		score, labels := ScoreCombination(resolved)
		analysis := strings.Join(labels, ", ")
		if reason := strings.TrimSpace(draft.Reason); reason != "" {
			analysis = reason
		}

		plan := models.Plan{
			ID:       uuid.NewString(),
			UserID:   callerID,
			Name:     name,
			Courses:  resolved,
			Score:    score,
			Analysis: analysis,
			Source:   models.PlanSourceAI,
		}
		if err := s.plans.Save(ctx, &plan); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist ai plan")
		}
		planIDs = append(planIDs, plan.ID)
	}

	return planIDs, nil
}

// minifyCatalog compacts the selected sections into the dense shape sent
// to the model, grouped per course code in selection order with catalog
// order preserved inside each group.
func minifyCatalog(sections []models.Course, selectedCodes []string) []dto.CompactCourse {
	byCode := make(map[string][]models.Course, len(selectedCodes))
	for _, section := range sections {
		byCode[section.Code] = append(byCode[section.Code], section)
	}

	seen := make(map[string]bool, len(selectedCodes))
	compact := make([]dto.CompactCourse, 0, len(selectedCodes))
	for _, code := range selectedCodes {
		if seen[code] {
			continue
		}
		seen[code] = true
		group, ok := byCode[code]
		if !ok {
			continue
		}

		course := dto.CompactCourse{
			Code:     code,
			Name:     group[0].Name,
			SKS:      group[0].SKS,
			Sections: make([]dto.CompactSection, 0, len(group)),
		}
		for _, section := range group {
			slots := make([]string, 0, len(section.Schedule))
			for _, slot := range section.Schedule {
				slots = append(slots, slot.String())
			}
			course.Sections = append(course.Sections, dto.CompactSection{
				ID:       section.ID,
				Class:    section.Class,
				Lecturer: section.Lecturer,
				Schedule: strings.Join(slots, "; "),
			})
		}
		compact = append(compact, course)
	}

	return compact
}

// cacheKeyPayload fixes the serialization shape for cache key hashing.
// Struct fields marshal in declaration order, and both the codes and the
// compact catalog are sorted by code before hashing, so equivalent
// requests always hash identically regardless of how the caller ordered
// its input.
type cacheKeyPayload struct {
	Catalog     []dto.CompactCourse `json:"catalog"`
	Codes       []string            `json:"codes"`
	MaxSKS      int                 `json:"maxSks"`
	Preferences string              `json:"preferences"`
	Model       string              `json:"model"`
}

func deriveCacheKey(compact []dto.CompactCourse, req dto.SmartGenerateRequest, model string) (string, error) {
	codes := make([]string, len(req.Codes))
	copy(codes, req.Codes)
	sort.Strings(codes)

	// minifyCatalog preserves selection order for the model prompt; the
	// hash input must not depend on it.
	catalog := make([]dto.CompactCourse, len(compact))
	copy(catalog, compact)
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Code < catalog[j].Code })

	raw, err := json.Marshal(cacheKeyPayload{
		Catalog:     catalog,
		Codes:       codes,
		MaxSKS:      req.MaxSKS,
		Preferences: req.Preferences,
		Model:       model,
	})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(raw)
	return "ai:plans:" + hex.EncodeToString(sum[:]), nil
}

type userPayload struct {
	Catalog     []dto.CompactCourse `json:"catalog"`
	MaxSKS      int                 `json:"maxSks,omitempty"`
	Preferences string              `json:"preferences,omitempty"`
}

func buildUserPayload(compact []dto.CompactCourse, req dto.SmartGenerateRequest) (string, error) {
	raw, err := json.Marshal(userPayload{
		Catalog:     compact,
		MaxSKS:      req.MaxSKS,
		Preferences: req.Preferences,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
