package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// PlanSource distinguishes enumerated plans from AI-refined ones.
type PlanSource string

const (
	PlanSourceGenerated PlanSource = "GENERATED"
	PlanSourceAI        PlanSource = "AI"
)

// PlanScore carries the three heuristic accumulators. They are raw,
// non-normalized signals for relative comparison, not probabilities.
type PlanScore struct {
	Safe    int `json:"safe"`
	Risky   int `json:"risky"`
	Optimal int `json:"optimal"`
}

// Plan is one complete, conflict-free selection of course sections, at
// most one per course code.
type Plan struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id,omitempty"`
	Name      string     `db:"name" json:"name"`
	Analysis  string     `db:"analysis" json:"analysis"`
	Source    PlanSource `db:"source" json:"source"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`

	// Courses and Score are stored as JSONB; the repository
	// (un)marshals them through the raw fields.
	Courses    []Course       `db:"-" json:"courses"`
	Score      PlanScore      `db:"-" json:"score"`
	RawCourses types.JSONText `db:"courses" json:"-"`
	RawScore   types.JSONText `db:"score" json:"-"`
}

// AIUsage tracks per-user smart-generate quota and cooldown state.
type AIUsage struct {
	UserID        string     `db:"user_id" json:"user_id"`
	Credits       int        `db:"credits" json:"credits"`
	LastInvokedAt *time.Time `db:"last_invoked_at" json:"last_invoked_at,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
