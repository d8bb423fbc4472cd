package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository owns the wallets and ledger_entries tables. Every mutation is a
// single transaction: lock the wallet row, update both balances, insert the
// ledger entry. Mutations on the same wallet serialize on the row lock;
// different wallets never contend.
type Repository struct {
	db               *sqlx.DB
	startingDiamonds int64
}

func NewRepository(db *sqlx.DB, startingDiamonds int64) *Repository {
	return &Repository{db: db, startingDiamonds: startingDiamonds}
}

// GetWallet returns the user's wallet, creating it with the starting grant
// on first access. Creation is an upsert, so concurrent first accesses
// produce exactly one wallet and one grant.
func (r *Repository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := r.ensureWallet(ctx2, r.db, userID); err != nil {
		return nil, err
	}

	var w Wallet
	err := r.db.GetContext(ctx2, &w, `
		SELECT user_id, diamonds, usdt_micro, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get wallet", ErrInternal)
	}
	return &w, nil
}

func (r *Repository) ensureWallet(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO wallets (user_id, diamonds, usdt_micro)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, r.startingDiamonds)
	if err != nil {
		return fmt.Errorf("%w: ensure wallet", ErrInternal)
	}
	return nil
}

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	if err := r.ensureWallet(ctx, tx, userID); err != nil {
		return nil, err
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT user_id, diamonds, usdt_micro, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: lock wallet", ErrInternal)
	}
	return &w, nil
}

// Apply commits a balance delta and its ledger entry atomically.
// Returns the updated wallet and the written entry.
func (r *Repository) Apply(ctx context.Context, userID uuid.UUID, delta Delta, e EntryTemplate) (*Wallet, *LedgerEntry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	w, entry, err := r.ApplyTx(ctx2, tx, userID, delta, e)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return w, entry, nil
}

// ApplyTx is Apply within an external transaction. The caller commits or
// rolls back; used when a wallet mutation must be atomic with another write
// (claim approval, campaign funding).
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta Delta, e EntryTemplate) (*Wallet, *LedgerEntry, error) {
	w, err := r.lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	nextDiamonds := w.Diamonds + delta.Diamonds
	nextUSDT := w.USDTMicro + delta.USDT
	if nextDiamonds < 0 {
		return nil, nil, fmt.Errorf("%w: have %d diamonds, need %d",
			ErrInsufficientBalance, w.Diamonds, -delta.Diamonds)
	}
	if nextUSDT < 0 {
		return nil, nil, fmt.Errorf("%w: have %s USDT, need %s",
			ErrInsufficientBalance, w.USDTMicro, -delta.USDT)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET diamonds = $2, usdt_micro = $3, updated_at = now()
		WHERE user_id = $1
	`, userID, nextDiamonds, int64(nextUSDT))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: update balances", ErrInternal)
	}

	entry, err := r.insertEntry(ctx, tx, userID, e)
	if err != nil {
		return nil, nil, err
	}

	w.Diamonds = nextDiamonds
	w.USDTMicro = nextUSDT
	return w, entry, nil
}

func (r *Repository) insertEntry(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, e EntryTemplate) (*LedgerEntry, error) {
	status := e.Status
	if status == "" {
		status = EntryStatusCompleted
	}

	var metadata json.RawMessage
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: encode entry metadata", ErrInternal)
		}
		metadata = raw
	}

	entry := LedgerEntry{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            e.Type,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Status:          status,
		RelatedEntityID: e.RelatedEntityID,
		Metadata:        metadata,
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, type, amount, currency, status, related_entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, entry.ID, entry.UserID, string(entry.Type), entry.Amount, string(entry.Currency),
		string(entry.Status), entry.RelatedEntityID, []byte(metadata)).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert ledger entry", ErrInternal)
	}
	return &entry, nil
}

// ListEntries returns the user's ledger entries newest first, optionally
// filtered by type, plus the total count for pagination metadata.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, typeFilter string, limit, offset int) ([]LedgerEntry, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if typeFilter != "" {
		where += ` AND type = $2`
		args = append(args, typeFilter)
	}

	var total int
	if err := r.db.GetContext(ctx2, &total,
		`SELECT COUNT(*) FROM ledger_entries `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: count ledger entries", ErrInternal)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, type, amount, currency, status, related_entity_id, metadata, created_at
		FROM ledger_entries
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	entries := make([]LedgerEntry, 0)
	if err := r.db.SelectContext(ctx2, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: list ledger entries", ErrInternal)
	}

	return entries, total, nil
}
