package dto

// GeneratePlansRequest asks the enumerator for conflict-free plans built
// from the selected course codes.
type GeneratePlansRequest struct {
	Codes     []string `json:"codes" validate:"required,min=1,max=15,dive,required"`
	Prodi     string   `json:"prodi" validate:"omitempty,max=64"`
	TermID    string   `json:"termId" validate:"omitempty,max=64"`
	PlanLimit int      `json:"planLimit" validate:"omitempty,min=1,max=24"`
	Persist   bool     `json:"persist"`
}

// SmartGenerateRequest asks the AI gateway for preference-optimized plan
// variants.
type SmartGenerateRequest struct {
	Codes       []string `json:"codes" validate:"required,min=1,max=15,dive,required"`
	Prodi       string   `json:"prodi" validate:"omitempty,max=64"`
	TermID      string   `json:"termId" validate:"omitempty,max=64"`
	MaxSKS      int      `json:"maxSks" validate:"omitempty,min=1,max=30"`
	Preferences string   `json:"preferences" validate:"omitempty,max=500"`
}

// SmartGenerateResponse reports the persisted plan ids.
type SmartGenerateResponse struct {
	PlanIDs []string `json:"planIds"`
	Count   int      `json:"count"`
	Cached  bool     `json:"cached"`
}

// QuotaResponse reports remaining smart-generate allowance and cooldown.
type QuotaResponse struct {
	Credits          int   `json:"credits"`
	CooldownSeconds  int64 `json:"cooldownSeconds"`
	RemainingSeconds int64 `json:"remainingSeconds"`
}

// CompactSection is the token-minified section shape sent to the model.
type CompactSection struct {
	ID       string `json:"id"`
	Class    string `json:"class"`
	Lecturer string `json:"lecturer"`
	Schedule string `json:"schedule"`
}

// CompactCourse groups the minified sections of one course code.
type CompactCourse struct {
	Code     string           `json:"code"`
	Name     string           `json:"name"`
	SKS      int              `json:"sks"`
	Sections []CompactSection `json:"sections"`
}

// PlanDraft is one plan variant as returned by the model: a name plus the
// section ids it selected from the minified payload.
type PlanDraft struct {
	Name      string   `json:"name"`
	CourseIDs []string `json:"courseIds"`
	Reason    string   `json:"reason,omitempty"`
}

// PlanDraftResponse is the structured output contract the model is
// prompted to produce: exactly three named variants.
type PlanDraftResponse struct {
	Plans []PlanDraft `json:"plans"`
}
