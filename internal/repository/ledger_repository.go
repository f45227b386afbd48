package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

// LedgerRepository tracks per-user AI generation credits and the cooldown
// timestamp in the ai_usage table.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new repository instance.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetOrCreate loads a user's ledger row, seeding it with the default
// credit allowance on first use.
func (r *LedgerRepository) GetOrCreate(ctx context.Context, userID string, defaultCredits int) (*models.AIUsage, error) {
	const insert = `INSERT INTO ai_usage (user_id, credits, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID, defaultCredits, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("seed ai usage for %s: %w", userID, err)
	}

	const query = `SELECT user_id, credits, last_invoked_at, updated_at FROM ai_usage WHERE user_id = $1`
	var usage models.AIUsage
	if err := r.db.GetContext(ctx, &usage, query, userID); err != nil {
		return nil, fmt.Errorf("load ai usage for %s: %w", userID, err)
	}
	return &usage, nil
}

// DecrementCredit atomically consumes one credit and returns the new
// balance. The guard clause keeps the balance from going negative when
// two requests race past the pre-flight check.
func (r *LedgerRepository) DecrementCredit(ctx context.Context, userID string) (int, error) {
	const query = `UPDATE ai_usage
		SET credits = credits - 1, updated_at = $2
		WHERE user_id = $1 AND credits > 0
		RETURNING credits`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, userID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("decrement ai credit for %s: %w", userID, err)
	}
	return remaining, nil
}

// RecordInvocation stamps the cooldown clock.
func (r *LedgerRepository) RecordInvocation(ctx context.Context, userID string, at time.Time) error {
	const query = `UPDATE ai_usage SET last_invoked_at = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, at.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("record ai invocation for %s: %w", userID, err)
	}
	return nil
}
