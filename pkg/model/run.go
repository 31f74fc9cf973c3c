package model

import "time"

// OutcomeStatus classifies the result of a disable attempt for one account.
type OutcomeStatus string

const (
	// OutcomeSuccess means the account was deactivated and the returned
	// record confirmed it.
	OutcomeSuccess OutcomeStatus = "Success"
	// OutcomeFailed means the patch failed or the account stayed active.
	OutcomeFailed OutcomeStatus = "Failed"
	// OutcomeSkipped means no change was attempted (not found, already
	// inactive, or dry run).
	OutcomeSkipped OutcomeStatus = "Skipped"
)

// Run records one execution of the disable-users workflow.
type Run struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	File      string    `json:"file"`
	DryRun    bool      `json:"dry_run"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// RunOutcome is the per-account result within a run.
type RunOutcome struct {
	RunID       string        `json:"run_id"`
	PersonID    string        `json:"person_id,omitempty"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name,omitempty"`
	Status      OutcomeStatus `json:"status"`
	Reason      string        `json:"reason,omitempty"`
}
