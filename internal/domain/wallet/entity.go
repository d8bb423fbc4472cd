package wallet

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/pkg/money"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryTypeBuyDiamonds     EntryType = "buy_diamonds"
	EntryTypeConvertToUSDT   EntryType = "convert_to_usdt"
	EntryTypeWithdrawUSDT    EntryType = "withdraw_usdt"
	EntryTypeCampaignSpend   EntryType = "campaign_spend"
	EntryTypeTaskEarning     EntryType = "task_earning"
	EntryTypeTaskReward      EntryType = "task_reward"
	EntryTypeAdminAdjustment EntryType = "admin_adjustment"
)

// Currency identifies which balance an entry moved.
type Currency string

const (
	CurrencyDiamond Currency = "DIAMOND"
	CurrencyUSDT    Currency = "USDT"
)

// EntryStatus tracks settlement state. Synchronous writes are completed at
// write time; pending is reserved for async settlement flows.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// Wallet holds one user's balances. USDT is stored in integer micro-units.
type Wallet struct {
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Diamonds  int64       `db:"diamonds" json:"diamonds"`
	USDTMicro money.Micro `db:"usdt_micro" json:"-"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is an immutable record of a single balance-affecting event.
// Corrections are new entries, never edits.
type LedgerEntry struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	Type            EntryType       `db:"type" json:"type"`
	Amount          int64           `db:"amount" json:"amount"`
	Currency        Currency        `db:"currency" json:"currency"`
	Status          EntryStatus     `db:"status" json:"status"`
	RelatedEntityID *string         `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Metadata        json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Delta is a signed change to a wallet's balances.
type Delta struct {
	Diamonds int64
	USDT     money.Micro
}

// EntryTemplate describes the ledger entry written alongside a delta.
type EntryTemplate struct {
	Type            EntryType
	Amount          int64
	Currency        Currency
	Status          EntryStatus
	RelatedEntityID *string
	Metadata        map[string]interface{}
}
