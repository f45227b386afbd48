package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

const planColumns = "id, user_id, name, analysis, source, courses, score, created_at"

// PlanRepository persists generated plans. Courses and Score are stored
// as JSONB snapshots so a saved plan survives later catalog edits.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new repository instance.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Save inserts a plan.
func (r *PlanRepository) Save(ctx context.Context, plan *models.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	rawCourses, err := json.Marshal(plan.Courses)
	if err != nil {
		return fmt.Errorf("marshal plan courses: %w", err)
	}
	rawScore, err := json.Marshal(plan.Score)
	if err != nil {
		return fmt.Errorf("marshal plan score: %w", err)
	}
	plan.RawCourses = rawCourses
	plan.RawScore = rawScore

	const query = `INSERT INTO plans (id, user_id, name, analysis, source, courses, score, created_at)
		VALUES (:id, :user_id, :name, :analysis, :source, :courses, :score, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// FindByID returns one plan by id.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	query := fmt.Sprintf("SELECT %s FROM plans WHERE id = $1", planColumns)
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	if err := decodePlan(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByUser returns a user's plans, newest first.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string) ([]models.Plan, error) {
	query := fmt.Sprintf("SELECT %s FROM plans WHERE user_id = $1 ORDER BY created_at DESC", planColumns)
	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, query, userID); err != nil {
		return nil, fmt.Errorf("list plans for user %s: %w", userID, err)
	}
	for i := range plans {
		if err := decodePlan(&plans[i]); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// Delete removes a plan owned by the given user. Returns sql.ErrNoRows
// semantics via affected-row count.
func (r *PlanRepository) Delete(ctx context.Context, userID, planID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1 AND user_id = $2`, planID, userID)
	if err != nil {
		return false, fmt.Errorf("delete plan %s: %w", planID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete plan %s: %w", planID, err)
	}
	return affected > 0, nil
}

func decodePlan(plan *models.Plan) error {
	if len(plan.RawCourses) > 0 {
		if err := json.Unmarshal(plan.RawCourses, &plan.Courses); err != nil {
			return fmt.Errorf("decode plan %s courses: %w", plan.ID, err)
		}
	}
	if len(plan.RawScore) > 0 {
		if err := json.Unmarshal(plan.RawScore, &plan.Score); err != nil {
			return fmt.Errorf("decode plan %s score: %w", plan.ID, err)
		}
	}
	return nil
}
