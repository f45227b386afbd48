package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/dto"
	"github.com/krayon-edu/krs-planner-api/internal/models"
	appErrors "github.com/krayon-edu/krs-planner-api/pkg/errors"
)

type catalogStub struct {
	sections []models.Course
	err      error
	calls    int
}

func (s *catalogStub) ListByCodes(_ context.Context, _ models.CourseFilter) ([]models.Course, error) {
	s.calls++
	return s.sections, s.err
}

type planWriterStub struct {
	saved []models.Plan
	err   error
}

func (s *planWriterStub) Save(_ context.Context, plan *models.Plan) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *plan)
	return nil
}

func twoCourseCatalog() []models.Course {
	return []models.Course{
		section("cs-a", "CS101", "A", slot("MONDAY", "08:00", "10:00")),
		section("cs-b", "CS101", "B", slot("TUESDAY", "08:00", "10:00")),
		section("ma-a", "MATH201", "A", slot("MONDAY", "09:00", "11:00")),
		section("ma-b", "MATH201", "B", slot("WEDNESDAY", "09:00", "11:00")),
	}
}

func TestEnumeratePlansFiltersConflicts(t *testing.T) {
	plans := EnumeratePlans(twoCourseCatalog(), []string{"CS101", "MATH201"}, 6, 5000, zap.NewNop())

	// CS101 A + MATH201 A collide on Monday; the other three pairings
	// survive.
	require.Len(t, plans, 3)
	for _, plan := range plans {
		require.Len(t, plan.Courses, 2)
		assert.True(t, CheckConflicts(plan.Courses).Valid)
	}
}

func TestEnumeratePlansOnlyConflictFreePairingSurvives(t *testing.T) {
	catalog := []models.Course{
		section("cs-a", "CS101", "A", slot("MONDAY", "08:00", "10:00")),
		section("cs-b", "CS101", "B", slot("TUESDAY", "08:00", "10:00")),
		section("ma-a", "MATH201", "A", slot("MONDAY", "09:00", "11:00")),
	}

	// CS101 A overlaps MATH201 on Monday 09:00-10:00, so only the
	// CS101 B pairing remains.
	plans := EnumeratePlans(catalog, []string{"CS101", "MATH201"}, 6, 5000, nil)

	require.Len(t, plans, 1)
	require.Len(t, plans[0].Courses, 2)
	ids := []string{plans[0].Courses[0].ID, plans[0].Courses[1].ID}
	assert.ElementsMatch(t, []string{"cs-b", "ma-a"}, ids)
}

func TestEnumeratePlansDeterministicOrderAndNaming(t *testing.T) {
	first := EnumeratePlans(twoCourseCatalog(), []string{"CS101", "MATH201"}, 6, 5000, nil)
	second := EnumeratePlans(twoCourseCatalog(), []string{"CS101", "MATH201"}, 6, 5000, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Score, second[i].Score)
		require.Equal(t, len(first[i].Courses), len(second[i].Courses))
		for j := range first[i].Courses {
			assert.Equal(t, first[i].Courses[j].ID, second[i].Courses[j].ID)
		}
	}

	assert.Equal(t, "Plan 1", first[0].Name)
	assert.Equal(t, "Plan 2", first[1].Name)
	assert.NotEmpty(t, first[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.Equal(t, models.PlanSourceGenerated, first[0].Source)
}

func TestEnumeratePlansRespectsPlanCap(t *testing.T) {
	catalog := make([]models.Course, 0, 8)
	for _, class := range []string{"A", "B", "C", "D"} {
		catalog = append(catalog, section("x-"+class, "X1", class, slot("MONDAY", "08:00", "09:00")))
	}
	for _, class := range []string{"A", "B", "C", "D"} {
		catalog = append(catalog, section("y-"+class, "Y1", class, slot("TUESDAY", "08:00", "09:00")))
	}

	// 16 conflict-free pairings exist; only 2 are kept.
	plans := EnumeratePlans(catalog, []string{"X1", "Y1"}, 2, 5000, nil)
	assert.Len(t, plans, 2)
}

func TestEnumeratePlansSkipsMissingCodes(t *testing.T) {
	plans := EnumeratePlans(twoCourseCatalog(), []string{"CS101", "NOPE999"}, 6, 5000, nil)

	// The unknown code is dropped, leaving single-course plans.
	require.Len(t, plans, 2)
	for _, plan := range plans {
		require.Len(t, plan.Courses, 1)
		assert.Equal(t, "CS101", plan.Courses[0].Code)
	}
}

func TestEnumeratePlansEmptyInputs(t *testing.T) {
	assert.Empty(t, EnumeratePlans(nil, []string{"CS101"}, 6, 5000, nil))
	assert.Empty(t, EnumeratePlans(twoCourseCatalog(), nil, 6, 5000, nil))
}

func TestEnumeratePlansDeduplicatesSelectedCodes(t *testing.T) {
	plans := EnumeratePlans(twoCourseCatalog(), []string{"CS101", "CS101"}, 6, 5000, nil)

	require.Len(t, plans, 2)
	for _, plan := range plans {
		assert.Len(t, plan.Courses, 1)
	}
}

func TestEnumeratePlansTruncatesAtCombinationCeiling(t *testing.T) {
	// Three codes with 4 sections each and a ceiling of 8: expansion
	// stops after the second code (16 > 8), so plans carry only the
	// first two codes.
	catalog := make([]models.Course, 0, 12)
	days := []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY"}
	for i, code := range []string{"C1", "C2", "C3"} {
		for j, class := range []string{"A", "B", "C", "D"} {
			catalog = append(catalog, section(code+"-"+class, code, class,
				slot(days[j], []string{"08:00", "10:00", "13:00"}[i], []string{"09:00", "11:00", "14:00"}[i])))
		}
	}

	plans := EnumeratePlans(catalog, []string{"C1", "C2", "C3"}, 24, 8, nil)
	require.NotEmpty(t, plans)
	for _, plan := range plans {
		assert.Len(t, plan.Courses, 2, "third code should be cut off by the ceiling")
	}
}

func TestGeneratePlansValidation(t *testing.T) {
	svc := NewPlannerService(&catalogStub{}, nil, nil, zap.NewNop(), nil, PlannerConfig{})

	_, err := svc.GeneratePlans(context.Background(), "user-1", dto.GeneratePlansRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGeneratePlansEmptyResultIsNotAnError(t *testing.T) {
	catalog := &catalogStub{sections: []models.Course{
		section("a", "CS101", "A", slot("MONDAY", "08:00", "10:00")),
		section("b", "MATH201", "A", slot("MONDAY", "09:00", "11:00")),
	}}
	svc := NewPlannerService(catalog, nil, nil, zap.NewNop(), nil, PlannerConfig{})

	plans, err := svc.GeneratePlans(context.Background(), "user-1", dto.GeneratePlansRequest{
		Codes: []string{"CS101", "MATH201"},
	})
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestGeneratePlansPersistsWhenRequested(t *testing.T) {
	catalog := &catalogStub{sections: twoCourseCatalog()}
	writer := &planWriterStub{}
	svc := NewPlannerService(catalog, writer, nil, zap.NewNop(), nil, PlannerConfig{})

	plans, err := svc.GeneratePlans(context.Background(), "user-7", dto.GeneratePlansRequest{
		Codes:   []string{"CS101", "MATH201"},
		Persist: true,
	})
	require.NoError(t, err)
	require.Len(t, writer.saved, len(plans))
	for _, saved := range writer.saved {
		assert.Equal(t, "user-7", saved.UserID)
	}
}

func TestGeneratePlansHonoursPlanLimitOverride(t *testing.T) {
	catalog := &catalogStub{sections: twoCourseCatalog()}
	svc := NewPlannerService(catalog, nil, nil, zap.NewNop(), nil, PlannerConfig{})

	plans, err := svc.GeneratePlans(context.Background(), "user-1", dto.GeneratePlansRequest{
		Codes:     []string{"CS101", "MATH201"},
		PlanLimit: 1,
	})
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}
