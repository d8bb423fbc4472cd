package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx writes the campaign row within an external transaction so the
// insert and the budget debit commit or roll back together.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, c *Campaign) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO campaigns (id, owner_id, kind, title, description, budget, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, c.ID, c.OwnerID, string(c.Kind), c.Title, c.Description, c.Budget, c.MaxParticipants).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert campaign", ErrInternal)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Campaign
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, owner_id, kind, title, description, budget, max_participants, created_at
		FROM campaigns
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get campaign", ErrInternal)
	}
	return &c, nil
}

// List returns campaigns newest first, optionally filtered by owner.
func (r *Repository) List(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]Campaign, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	where := ""
	args := make([]interface{}, 0, 3)
	if ownerID != nil {
		where = `WHERE owner_id = $1`
		args = append(args, *ownerID)
	}

	var total int
	if err := r.db.GetContext(ctx2, &total,
		`SELECT COUNT(*) FROM campaigns `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: count campaigns", ErrInternal)
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, kind, title, description, budget, max_participants, created_at
		FROM campaigns
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	campaigns := make([]Campaign, 0)
	if err := r.db.SelectContext(ctx2, &campaigns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: list campaigns", ErrInternal)
	}
	return campaigns, total, nil
}
