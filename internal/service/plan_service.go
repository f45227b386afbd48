package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
	"github.com/krayon-edu/krs-planner-api/pkg/export"
)

type planRepository interface {
	Save(ctx context.Context, plan *models.Plan) error
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	ListByUser(ctx context.Context, userID string) ([]models.Plan, error)
	Delete(ctx context.Context, userID, planID string) (bool, error)
}

type tabularExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentExporter interface {
	Render(data export.Dataset, title string, subtitles ...string) ([]byte, error)
}

// PlanService reads stored plans and renders them as downloadable files.
// Every accessor is owner-scoped: a plan is only visible to the user who
// generated it.
type PlanService struct {
	repo   planRepository
	csv    tabularExporter
	pdf    documentExporter
	logger *zap.Logger
}

// NewPlanService constructs a PlanService.
func NewPlanService(repo planRepository, csv tabularExporter, pdf documentExporter, logger *zap.Logger) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// List returns the caller's stored plans, newest first.
func (s *PlanService) List(ctx context.Context, userID string) ([]models.Plan, error) {
	plans, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	return plans, nil
}

// Get returns one plan if it belongs to the caller.
func (s *PlanService) Get(ctx context.Context, userID, planID string) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if plan.UserID != userID {
		// Ownership mismatch is reported as not-found so plan ids are
		// not probeable across accounts.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
	}
	return plan, nil
}

// Delete removes one of the caller's plans.
func (s *PlanService) Delete(ctx context.Context, userID, planID string) error {
	deleted, err := s.repo.Delete(ctx, userID, planID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete plan")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
	}
	return nil
}

// ExportCSV renders a plan timetable as CSV bytes.
func (s *PlanService) ExportCSV(ctx context.Context, userID, planID string) ([]byte, string, error) {
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, "", err
	}

	payload, err := s.csv.Render(planDataset(plan))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, fmt.Sprintf("%s.csv", exportBaseName(plan)), nil
}

// ExportPDF renders a plan timetable as a PDF document.
func (s *PlanService) ExportPDF(ctx context.Context, userID, planID string) ([]byte, string, error) {
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, "", err
	}

	subtitles := []string{
		fmt.Sprintf("Safe %d / Risky %d / Optimal %d", plan.Score.Safe, plan.Score.Risky, plan.Score.Optimal),
	}
	if plan.Analysis != "" {
		subtitles = append(subtitles, plan.Analysis)
	}

	payload, err := s.pdf.Render(planDataset(plan), plan.Name, subtitles...)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, fmt.Sprintf("%s.pdf", exportBaseName(plan)), nil
}

// planDataset flattens a plan into one row per meeting slot, ordered by
// weekday then start time.
func planDataset(plan *models.Plan) export.Dataset {
	type slotRow struct {
		dayIndex int
		start    string
		row      map[string]string
	}

	rows := make([]slotRow, 0, len(plan.Courses))
	for _, course := range plan.Courses {
		for _, slot := range course.Schedule {
			rows = append(rows, slotRow{
				dayIndex: models.WeekdayIndex(slot.Day),
				start:    slot.Start,
				row: map[string]string{
					"Day":      slot.Day,
					"Time":     fmt.Sprintf("%s-%s", slot.Start, slot.End),
					"Course":   fmt.Sprintf("%s %s", course.Code, course.Name),
					"Class":    course.Class,
					"Lecturer": course.Lecturer,
					"Room":     course.Room,
					"SKS":      strconv.Itoa(course.SKS),
				},
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].dayIndex != rows[j].dayIndex {
			return rows[i].dayIndex < rows[j].dayIndex
		}
		return rows[i].start < rows[j].start
	})

	dataset := export.Dataset{
		Headers: []string{"Day", "Time", "Course", "Class", "Lecturer", "Room", "SKS"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, r := range rows {
		dataset.Rows = append(dataset.Rows, r.row)
	}
	return dataset
}

func exportBaseName(plan *models.Plan) string {
	if plan.Name == "" {
		return plan.ID
	}
	base := make([]rune, 0, len(plan.Name))
	for _, r := range plan.Name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			base = append(base, r)
		case r == ' ', r == '-', r == '_':
			base = append(base, '_')
		}
	}
	if len(base) == 0 {
		return plan.ID
	}
	return string(base)
}
