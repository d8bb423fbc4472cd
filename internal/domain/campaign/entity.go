package campaign

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes one-off tasks from multi-participant campaigns. Both
// share the funding and claim flow; the kind decides how reward credits are
// classified in the ledger.
type Kind string

const (
	KindTask     Kind = "task"
	KindCampaign Kind = "campaign"
)

// Campaign is a funded unit of work users can claim rewards against.
// The budget is debited from the owner's diamond balance at creation.
type Campaign struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OwnerID         uuid.UUID `db:"owner_id" json:"owner_id"`
	Kind            Kind      `db:"kind" json:"kind"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Budget          int64     `db:"budget" json:"budget"`
	MaxParticipants int       `db:"max_participants" json:"max_participants"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RewardPerParticipant is the snapshot reward paid to each approved claim.
func (c *Campaign) RewardPerParticipant() int64 {
	if c.MaxParticipants <= 0 {
		return 0
	}
	return c.Budget / int64(c.MaxParticipants)
}
