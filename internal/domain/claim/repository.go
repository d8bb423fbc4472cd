package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository owns the claims table. A partial unique index on
// (user_id, campaign_id) WHERE status <> 'rejected' backs the
// one-active-claim-per-target invariant even under concurrent submissions.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, c *Claim) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx2, `
		INSERT INTO claims (id, user_id, campaign_id, target_kind, status, reward_amount, proof)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING claimed_at
	`, c.ID, c.UserID, c.CampaignID, c.TargetKind, string(c.Status), c.RewardAmount, c.Proof).Scan(&c.ClaimedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateClaim
		}
		return fmt.Errorf("%w: insert claim", ErrInternal)
	}
	return nil
}

// FindActive returns the user's non-rejected claim for a campaign, if any.
func (r *Repository) FindActive(ctx context.Context, userID, campaignID uuid.UUID) (*Claim, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Claim
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, user_id, campaign_id, target_kind, status, reward_amount, proof, reviewer_notes, claimed_at, verified_at
		FROM claims
		WHERE user_id = $1 AND campaign_id = $2 AND status <> 'rejected'
		LIMIT 1
	`, userID, campaignID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find active claim", ErrInternal)
	}
	return &c, nil
}

// GetForUpdate locks the claim row so the status check and transition are
// atomic with respect to concurrent reviewers.
func (r *Repository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Claim, error) {
	var c Claim
	err := tx.GetContext(ctx, &c, `
		SELECT id, user_id, campaign_id, target_kind, status, reward_amount, proof, reviewer_notes, claimed_at, verified_at
		FROM claims
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock claim", ErrInternal)
	}
	return &c, nil
}

// TransitionTx moves a pending claim to a terminal state within an external
// transaction. The expected-status guard in the WHERE clause is what makes
// review idempotent.
func (r *Repository) TransitionTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, expected, next Status, notes string) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE claims
		SET status = $3, reviewer_notes = $4, verified_at = now()
		WHERE id = $1 AND status = $2
	`, id, string(expected), string(next), notes)
	if err != nil {
		return false, fmt.Errorf("%w: transition claim", ErrInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return rows == 1, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Claim, int, error) {
	return r.list(ctx, `WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *Repository) ListPending(ctx context.Context, limit, offset int) ([]Claim, int, error) {
	return r.list(ctx, `WHERE status = 'pending'`, nil, limit, offset)
}

func (r *Repository) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]Claim, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := r.db.GetContext(ctx2, &total,
		`SELECT COUNT(*) FROM claims `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: count claims", ErrInternal)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, campaign_id, target_kind, status, reward_amount, proof, reviewer_notes, claimed_at, verified_at
		FROM claims
		%s
		ORDER BY claimed_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	claims := make([]Claim, 0)
	if err := r.db.SelectContext(ctx2, &claims, query, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: list claims", ErrInternal)
	}
	return claims, total, nil
}
