package campaign

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-api/internal/domain/wallet"
)

// WalletLedger is the wallet primitive campaigns debit budgets through.
type WalletLedger interface {
	ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta wallet.Delta, e wallet.EntryTemplate) (*wallet.Wallet, *wallet.LedgerEntry, error)
}

// ActivityRecorder receives best-effort activity feed events.
type ActivityRecorder interface {
	Record(userID uuid.UUID, activityType, title string)
}

// CreateInput carries validated campaign creation fields.
type CreateInput struct {
	Kind            Kind
	Title           string
	Description     string
	Budget          int64
	MaxParticipants int
}

type Service struct {
	db       *sqlx.DB
	repo     *Repository
	wallets  WalletLedger
	activity ActivityRecorder
}

func NewService(db *sqlx.DB, repo *Repository, wallets WalletLedger, activity ActivityRecorder) *Service {
	return &Service{db: db, repo: repo, wallets: wallets, activity: activity}
}

// Create inserts the campaign and debits the owner's budget in one
// transaction. A campaign row never becomes visible without its matching
// campaign_spend ledger entry.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Campaign, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Kind != KindTask && in.Kind != KindCampaign {
		return nil, fmt.Errorf("%w: kind must be task or campaign", ErrInvalidInput)
	}
	if in.Budget < 0 {
		return nil, fmt.Errorf("%w: budget must be non-negative", ErrInvalidInput)
	}
	if in.MaxParticipants <= 0 {
		return nil, fmt.Errorf("%w: max participants must be positive", ErrInvalidInput)
	}

	c := &Campaign{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Kind:            in.Kind,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Budget:          in.Budget,
		MaxParticipants: in.MaxParticipants,
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := s.repo.InsertTx(ctx, tx, c); err != nil {
		return nil, err
	}

	if in.Budget > 0 {
		campaignID := c.ID.String()
		_, _, err := s.wallets.ApplyTx(ctx, tx, ownerID, wallet.Delta{Diamonds: -in.Budget}, wallet.EntryTemplate{
			Type:            wallet.EntryTypeCampaignSpend,
			Amount:          in.Budget,
			Currency:        wallet.CurrencyDiamond,
			RelatedEntityID: &campaignID,
			Metadata:        map[string]interface{}{"title": c.Title},
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	log.Info().
		Str("campaign_id", c.ID.String()).
		Str("owner_id", ownerID.String()).
		Int64("budget", in.Budget).
		Str("kind", string(c.Kind)).
		Msg("campaign created")
	if s.activity != nil {
		s.activity.Record(ownerID, "campaign_created", fmt.Sprintf("Funded %q with %d diamonds", c.Title, in.Budget))
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, ownerID *uuid.UUID, page, limit int) ([]Campaign, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, ownerID, limit, (page-1)*limit)
}
