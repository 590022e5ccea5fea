package postgres

import (
	"context"
	"fmt"

	"github.com/classiccounter/gcserver/internal/gcerr"
	"github.com/classiccounter/gcserver/internal/repository"
	"github.com/classiccounter/gcserver/pkg/database"
)

// InventoryRepository queries the item-ownership table backing C3's
// per-session item-change poll. Grounded on networking.hpp's separate
// inventory database connection (m_mysql2), kept as its own type here
// since nothing else in the repository contract needs that table.
type InventoryRepository struct {
	db *database.DB
}

func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) MaxItemID(ctx context.Context, steamID uint64) (uint64, error) {
	const query = `SELECT COALESCE(MAX(item_id), 0) FROM inventory_items WHERE steam_id = $1`
	var max uint64
	if err := r.db.QueryRowContext(ctx, query, steamID).Scan(&max); err != nil {
		return 0, fmt.Errorf("%w: max item id: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return max, nil
}

func (r *InventoryRepository) ItemsNewerThan(ctx context.Context, steamID uint64, sinceID uint64) ([]uint64, error) {
	const query = `SELECT item_id FROM inventory_items WHERE steam_id = $1 AND item_id > $2 ORDER BY item_id`
	rows, err := r.db.QueryContext(ctx, query, steamID, sinceID)
	if err != nil {
		return nil, fmt.Errorf("%w: items newer than: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan item id: %v", gcerr.ErrRepositoryUnavailable, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ repository.InventoryRepository = (*InventoryRepository)(nil)
