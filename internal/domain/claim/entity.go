package claim

import (
	"time"

	"github.com/google/uuid"
)

// Status is the claim state machine: pending is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Claim records a user's assertion of having completed a campaign or task.
// The reward is snapshotted at submission so later campaign edits cannot
// change the payout.
type Claim struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	CampaignID    uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	TargetKind    string     `db:"target_kind" json:"target_kind"`
	Status        Status     `db:"status" json:"status"`
	RewardAmount  int64      `db:"reward_amount" json:"reward_amount"`
	Proof         string     `db:"proof" json:"proof"`
	ReviewerNotes *string    `db:"reviewer_notes" json:"reviewer_notes,omitempty"`
	ClaimedAt     time.Time  `db:"claimed_at" json:"claimed_at"`
	VerifiedAt    *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// Settlement is the result of an approve/reject decision.
type Settlement struct {
	Claim   *Claim     `json:"claim"`
	EntryID *uuid.UUID `json:"entry_id,omitempty"`
}
