package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteledger/siteledger/internal/platform/db"
	"github.com/siteledger/siteledger/internal/stock"
)

// ItemStock is an item's authoritative level plus the fields the committer
// validates against, read under a row lock.
type ItemStock struct {
	ID            int64
	Name          string
	Quantity      int
	WeightPerUnit *float64
}

// TxRepository exposes the write operations available inside one commit
// transaction.
type TxRepository interface {
	// AcquireNextSequence reads the last issued challan number and returns
	// the next value. The read and the subsequent insert share the same
	// transaction, so a concurrent committer can never reuse the value.
	AcquireNextSequence(ctx context.Context) (int64, error)
	LockItems(ctx context.Context, ids []int64) (map[int64]ItemStock, error)
	InsertChallan(ctx context.Context, challan Challan) (int64, error)
	InsertChallanLines(ctx context.Context, challanID int64, lines []ChallanLine) error
	InsertMovement(ctx context.Context, m stock.Movement) error
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	GetChallanForUpdate(ctx context.Context, ref uuid.UUID) (Challan, error)
	UpdateChallanStatus(ctx context.Context, challanID int64, status Status) error
	AddReturnedQuantity(ctx context.Context, lineID int64, quantity int) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetChallan(ctx context.Context, ref uuid.UUID) (Challan, error)
	ListChallans(ctx context.Context, filter ChallanFilter) ([]Challan, int, error)
}

// ChallanFilter narrows challan listings.
type ChallanFilter struct {
	ProjectID int64
	Status    Status
	Limit     int
	Offset    int
}

// Repository persists dispatch data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside one serializable transaction. Sequence
// issuance, stock validation, and stock decrement all happen inside it.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const challanColumns = `id, ref, number, project_id, source_site_id, dispatch_type, status,
	capacity, total_weight, plate_number, driver_name, transporter_name,
	consignment_note, dispatch_from, dispatch_to, declared_amount, created_by, created_at`

// GetChallan loads one challan with its lines.
func (r *Repository) GetChallan(ctx context.Context, ref uuid.UUID) (Challan, error) {
	query := fmt.Sprintf(`SELECT %s FROM challans WHERE ref = $1`, challanColumns)
	challan, err := scanChallan(r.pool.QueryRow(ctx, query, ref))
	if err != nil {
		return Challan{}, err
	}
	lines, err := loadLines(ctx, r.pool, challan.ID)
	if err != nil {
		return Challan{}, err
	}
	challan.Lines = lines
	return challan, nil
}

// ListChallans lists challans newest first.
func (r *Repository) ListChallans(ctx context.Context, filter ChallanFilter) ([]Challan, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	arg := 1
	if filter.ProjectID != 0 {
		where += fmt.Sprintf(" AND project_id = $%d", arg)
		args = append(args, filter.ProjectID)
		arg++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", arg)
		args = append(args, filter.Status)
		arg++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM challans `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("dispatch: count challans: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM challans %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		challanColumns, where, arg, arg+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("dispatch: list challans: %w", err)
	}
	defer rows.Close()

	var challans []Challan
	for rows.Next() {
		challan, err := scanChallan(rows)
		if err != nil {
			return nil, 0, err
		}
		challans = append(challans, challan)
	}
	return challans, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallan(row rowScanner) (Challan, error) {
	var c Challan
	err := row.Scan(
		&c.ID, &c.Ref, &c.Number, &c.ProjectID, &c.SourceSiteID, &c.Type, &c.Status,
		&c.Capacity, &c.TotalWeight, &c.Meta.PlateNumber, &c.Meta.DriverName,
		&c.Meta.TransporterName, &c.Meta.ConsignmentNote, &c.Meta.DispatchFrom,
		&c.Meta.DispatchTo, &c.Meta.DeclaredAmount, &c.CreatedBy, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challan{}, ErrChallanNotFound
	}
	if err != nil {
		return Challan{}, fmt.Errorf("dispatch: scan challan: %w", err)
	}
	return c, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, challanID int64) ([]ChallanLine, error) {
	const query = `
		SELECT id, challan_id, item_id, item_name, quantity, weight_per_unit, hsn_code, returned_quantity
		FROM challan_lines
		WHERE challan_id = $1
		ORDER BY id
	`
	rows, err := q.Query(ctx, query, challanID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load challan lines: %w", err)
	}
	defer rows.Close()

	var lines []ChallanLine
	for rows.Next() {
		var line ChallanLine
		if err := rows.Scan(
			&line.ID, &line.ChallanID, &line.ItemID, &line.ItemName,
			&line.Quantity, &line.WeightPerUnit, &line.HSNCode, &line.ReturnedQuantity,
		); err != nil {
			return nil, fmt.Errorf("dispatch: scan challan line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
