package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteledger/siteledger/internal/platform/db"
)

// ItemLevel is an item's authoritative quantity read under a row lock.
type ItemLevel struct {
	ID       int64
	Name     string
	Quantity int
}

// Insert appends one movement row inside the given transaction. The dispatch
// committer and collaborator flows share this single write path.
func Insert(ctx context.Context, tx pgx.Tx, m Movement) error {
	const query = `
		INSERT INTO stock_movements
			(item_id, movement_type, quantity, previous_quantity, new_quantity, project_id, notes, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := tx.Exec(ctx, query,
		m.ItemID, m.Type, m.Quantity, m.PreviousQuantity, m.NewQuantity,
		m.ProjectID, m.Notes, m.PerformedBy,
	)
	if err != nil {
		return fmt.Errorf("stock: insert movement: %w", err)
	}
	return nil
}

// LockItem reads an item's level FOR UPDATE inside the given transaction so
// no concurrent transaction computes from the same stale quantity.
func LockItem(ctx context.Context, tx pgx.Tx, itemID int64) (ItemLevel, error) {
	const query = `SELECT id, name, quantity_available FROM items WHERE id = $1 FOR UPDATE`
	var level ItemLevel
	err := tx.QueryRow(ctx, query, itemID).Scan(&level.ID, &level.Name, &level.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemLevel{}, ErrItemNotFound
	}
	if err != nil {
		return ItemLevel{}, fmt.Errorf("stock: lock item: %w", err)
	}
	return level, nil
}

// SetItemQuantity writes an item's authoritative quantity inside the given
// transaction. Callers must hold the row lock from LockItem. A negative
// quantity is rejected so no caller can drive the ledger below zero.
func SetItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}
	tag, err := tx.Exec(ctx, `UPDATE items SET quantity_available = $1 WHERE id = $2`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("stock: set item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// TxRepository exposes transactional ledger operations to the service.
type TxRepository interface {
	LockItem(ctx context.Context, itemID int64) (ItemLevel, error)
	InsertMovement(ctx context.Context, m Movement) error
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
}

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) LockItem(ctx context.Context, itemID int64) (ItemLevel, error) {
	return LockItem(ctx, r.tx, itemID)
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) error {
	return Insert(ctx, r.tx, m)
}

func (r *txRepo) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return SetItemQuantity(ctx, r.tx, itemID, quantity)
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListByItem returns the movement history of one item, newest first.
func (r *Repository) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]Movement, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE item_id = $1`, itemID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("stock: count movements: %w", err)
	}

	const query = `
		SELECT id, item_id, movement_type, quantity, previous_quantity, new_quantity,
		       project_id, notes, performed_by, created_at
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, itemID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("stock: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(
			&m.ID, &m.ItemID, &m.Type, &m.Quantity, &m.PreviousQuantity, &m.NewQuantity,
			&m.ProjectID, &m.Notes, &m.PerformedBy, &m.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("stock: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}
