package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads inventory data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ItemsByIDs fetches item master data for the given ids.
func (r *Repository) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error) {
	if len(ids) == 0 {
		return map[int64]Item{}, nil
	}
	const query = `
		SELECT i.id, i.name, i.quantity_available, i.weight_per_unit, i.hsn_code,
		       c.id, c.name, c.loading_order
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("inventory: items by ids: %w", err)
	}
	defer rows.Close()

	items := make(map[int64]Item, len(ids))
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.Name, &item.QuantityAvailable, &item.WeightPerUnit, &item.HSNCode,
			&item.CategoryID, &item.CategoryName, &item.LoadingOrder,
		); err != nil {
			return nil, fmt.Errorf("inventory: scan item: %w", err)
		}
		items[item.ID] = item
	}
	return items, rows.Err()
}

// SiteSnapshot lists the quantities currently deployed at a site.
func (r *Repository) SiteSnapshot(ctx context.Context, siteID int64) ([]SnapshotEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sites WHERE id = $1)`, siteID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("inventory: check site: %w", err)
	}
	if !exists {
		return nil, ErrSiteNotFound
	}

	const query = `
		SELECT item_id, quantity_deployed
		FROM site_inventory
		WHERE site_id = $1 AND quantity_deployed > 0
		ORDER BY item_id
	`
	rows, err := r.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("inventory: site snapshot: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ProjectOutwardSnapshot lists each item's net outward quantity for a project:
// everything dispatched to it minus everything returned from it.
func (r *Repository) ProjectOutwardSnapshot(ctx context.Context, projectID int64) ([]SnapshotEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("inventory: check project: %w", err)
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	const query = `
		SELECT item_id,
		       SUM(CASE WHEN movement_type = 'OUTWARD' THEN quantity ELSE -quantity END) AS net_qty
		FROM stock_movements
		WHERE project_id = $1
		GROUP BY item_id
		HAVING SUM(CASE WHEN movement_type = 'OUTWARD' THEN quantity ELSE -quantity END) > 0
		ORDER BY item_id
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("inventory: project outward snapshot: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]SnapshotEntry, error) {
	var entries []SnapshotEntry
	for rows.Next() {
		var entry SnapshotEntry
		if err := rows.Scan(&entry.ItemID, &entry.Quantity); err != nil {
			return nil, fmt.Errorf("inventory: scan snapshot entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return entries, nil
}
