package claim

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-api/internal/domain/campaign"
	"github.com/taskhive/taskhive-api/internal/domain/wallet"
)

// CampaignStore resolves claim targets.
type CampaignStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
}

// WalletLedger is the wallet primitive approvals credit rewards through.
type WalletLedger interface {
	ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta wallet.Delta, e wallet.EntryTemplate) (*wallet.Wallet, *wallet.LedgerEntry, error)
}

// ActivityRecorder receives best-effort activity feed events.
type ActivityRecorder interface {
	Record(userID uuid.UUID, activityType, title string)
}

type Service struct {
	db        *sqlx.DB
	repo      *Repository
	campaigns CampaignStore
	wallets   WalletLedger
	activity  ActivityRecorder
}

func NewService(db *sqlx.DB, repo *Repository, campaigns CampaignStore, wallets WalletLedger, activity ActivityRecorder) *Service {
	return &Service{db: db, repo: repo, campaigns: campaigns, wallets: wallets, activity: activity}
}

// Submit creates a pending claim. The reward is computed from the campaign
// definition now and stored on the claim; approval pays the stored amount.
func (s *Service) Submit(ctx context.Context, userID, campaignID uuid.UUID, proof string) (*Claim, error) {
	if strings.TrimSpace(proof) == "" {
		return nil, fmt.Errorf("%w: proof is required", ErrInvalidInput)
	}

	target, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActive(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: claim %s is %s", ErrDuplicateClaim, existing.ID, existing.Status)
	}

	c := &Claim{
		ID:           uuid.New(),
		UserID:       userID,
		CampaignID:   campaignID,
		TargetKind:   string(target.Kind),
		Status:       StatusPending,
		RewardAmount: target.RewardPerParticipant(),
		Proof:        strings.TrimSpace(proof),
	}

	// The partial unique index catches the race two concurrent submissions
	// would slip through the FindActive check.
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	log.Info().
		Str("claim_id", c.ID.String()).
		Str("user_id", userID.String()).
		Str("campaign_id", campaignID.String()).
		Int64("reward", c.RewardAmount).
		Msg("claim submitted")

	return c, nil
}

// Approve transitions a pending claim to approved and credits the snapshot
// reward, all in one transaction: a claim is never left approved without its
// credit, and a claim is never credited twice.
func (s *Service) Approve(ctx context.Context, claimID uuid.UUID, reviewerNotes string) (*Settlement, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	c, err := s.repo.GetForUpdate(ctx, tx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, fmt.Errorf("%w: claim is %s", ErrAlreadyProcessed, c.Status)
	}

	ok, err := s.repo.TransitionTx(ctx, tx, claimID, StatusPending, StatusApproved, reviewerNotes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: claim is no longer pending", ErrAlreadyProcessed)
	}

	entryType := wallet.EntryTypeTaskReward
	if c.TargetKind == string(campaign.KindTask) {
		entryType = wallet.EntryTypeTaskEarning
	}

	var entryID *uuid.UUID
	if c.RewardAmount > 0 {
		claimRef := c.ID.String()
		_, entry, err := s.wallets.ApplyTx(ctx, tx, c.UserID, wallet.Delta{Diamonds: c.RewardAmount}, wallet.EntryTemplate{
			Type:            entryType,
			Amount:          c.RewardAmount,
			Currency:        wallet.CurrencyDiamond,
			RelatedEntityID: &claimRef,
			Metadata:        map[string]interface{}{"campaign_id": c.CampaignID.String()},
		})
		if err != nil {
			return nil, err
		}
		entryID = &entry.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	c.Status = StatusApproved
	now := time.Now()
	c.VerifiedAt = &now
	if reviewerNotes != "" {
		c.ReviewerNotes = &reviewerNotes
	}

	log.Info().
		Str("claim_id", claimID.String()).
		Str("user_id", c.UserID.String()).
		Int64("reward", c.RewardAmount).
		Msg("claim approved")
	if s.activity != nil {
		s.activity.Record(c.UserID, "claim_approved", fmt.Sprintf("Claim approved, %d diamonds credited", c.RewardAmount))
	}

	return &Settlement{Claim: c, EntryID: entryID}, nil
}

// Reject transitions a pending claim to rejected. No balance effect.
func (s *Service) Reject(ctx context.Context, claimID uuid.UUID, reason string) (*Settlement, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	c, err := s.repo.GetForUpdate(ctx, tx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, fmt.Errorf("%w: claim is %s", ErrAlreadyProcessed, c.Status)
	}

	ok, err := s.repo.TransitionTx(ctx, tx, claimID, StatusPending, StatusRejected, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: claim is no longer pending", ErrAlreadyProcessed)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	c.Status = StatusRejected
	now := time.Now()
	c.VerifiedAt = &now
	if reason != "" {
		c.ReviewerNotes = &reason
	}

	log.Info().
		Str("claim_id", claimID.String()).
		Str("user_id", c.UserID.String()).
		Msg("claim rejected")
	if s.activity != nil {
		s.activity.Record(c.UserID, "claim_rejected", "Claim rejected")
	}

	return &Settlement{Claim: c}, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]Claim, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
}

func (s *Service) ListPending(ctx context.Context, page, limit int) ([]Claim, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListPending(ctx, limit, (page-1)*limit)
}
