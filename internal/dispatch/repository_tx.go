package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siteledger/siteledger/internal/stock"
)

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) AcquireNextSequence(ctx context.Context) (int64, error) {
	var last string
	err := r.tx.QueryRow(ctx, `SELECT number FROM challans ORDER BY id DESC LIMIT 1`).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dispatch: read last sequence: %w", err)
	}
	n, err := ParseSequence(last)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// LockItems reads the referenced items FOR UPDATE in id order, so two
// transactions touching overlapping item sets lock in a consistent order.
func (r *txRepo) LockItems(ctx context.Context, ids []int64) (map[int64]ItemStock, error) {
	if len(ids) == 0 {
		return map[int64]ItemStock{}, nil
	}
	const query = `
		SELECT id, name, quantity_available, weight_per_unit
		FROM items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`
	rows, err := r.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("dispatch: lock items: %w", err)
	}
	defer rows.Close()

	levels := make(map[int64]ItemStock, len(ids))
	for rows.Next() {
		var level ItemStock
		if err := rows.Scan(&level.ID, &level.Name, &level.Quantity, &level.WeightPerUnit); err != nil {
			return nil, fmt.Errorf("dispatch: scan item level: %w", err)
		}
		levels[level.ID] = level
	}
	return levels, rows.Err()
}

func (r *txRepo) InsertChallan(ctx context.Context, challan Challan) (int64, error) {
	const query = `
		INSERT INTO challans (
			ref, number, project_id, source_site_id, dispatch_type, status,
			capacity, total_weight, plate_number, driver_name, transporter_name,
			consignment_note, dispatch_from, dispatch_to, declared_amount, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		RETURNING id
	`
	var id int64
	err := r.tx.QueryRow(ctx, query,
		challan.Ref, challan.Number, challan.ProjectID, challan.SourceSiteID,
		challan.Type, challan.Status, challan.Capacity, challan.TotalWeight,
		challan.Meta.PlateNumber, challan.Meta.DriverName, challan.Meta.TransporterName,
		challan.Meta.ConsignmentNote, challan.Meta.DispatchFrom, challan.Meta.DispatchTo,
		challan.Meta.DeclaredAmount, challan.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("dispatch: insert challan: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertChallanLines(ctx context.Context, challanID int64, lines []ChallanLine) error {
	const query = `
		INSERT INTO challan_lines (challan_id, item_id, item_name, quantity, weight_per_unit, hsn_code, returned_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
	`
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, query,
			challanID, line.ItemID, line.ItemName, line.Quantity, line.WeightPerUnit, line.HSNCode,
		); err != nil {
			return fmt.Errorf("dispatch: insert challan line: %w", err)
		}
	}
	return nil
}

func (r *txRepo) InsertMovement(ctx context.Context, m stock.Movement) error {
	return stock.Insert(ctx, r.tx, m)
}

func (r *txRepo) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return stock.SetItemQuantity(ctx, r.tx, itemID, quantity)
}

func (r *txRepo) GetChallanForUpdate(ctx context.Context, ref uuid.UUID) (Challan, error) {
	query := fmt.Sprintf(`SELECT %s FROM challans WHERE ref = $1 FOR UPDATE`, challanColumns)
	challan, err := scanChallan(r.tx.QueryRow(ctx, query, ref))
	if err != nil {
		return Challan{}, err
	}
	lines, err := loadLines(ctx, r.tx, challan.ID)
	if err != nil {
		return Challan{}, err
	}
	challan.Lines = lines
	return challan, nil
}

func (r *txRepo) UpdateChallanStatus(ctx context.Context, challanID int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE challans SET status = $1 WHERE id = $2`, status, challanID)
	if err != nil {
		return fmt.Errorf("dispatch: update challan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChallanNotFound
	}
	return nil
}

// AddReturnedQuantity is keyed by line id: a challan may carry several lines
// for one item and a return settles against exactly one of them.
func (r *txRepo) AddReturnedQuantity(ctx context.Context, lineID int64, quantity int) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE challan_lines SET returned_quantity = returned_quantity + $1 WHERE id = $2`,
		quantity, lineID,
	)
	if err != nil {
		return fmt.Errorf("dispatch: add returned quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChallanNotFound
	}
	return nil
}
