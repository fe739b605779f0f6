package storage

import (
	"context"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// CreateShopStock 上架某天的商品，同一天已上架的商品不覆盖
func (s *Storage) CreateShopStock(ctx context.Context, stock []models.ShopStock) error {
	for i, st := range stock {
		_, err := s.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO shop_stock (day, item_id, remaining, position)
			VALUES (?, ?, ?, ?)
		`, st.Day, st.ItemID, st.Remaining, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListShopStock 某天的全部商品（含已售罄），按上架顺序
func (s *Storage) ListShopStock(ctx context.Context, day string) ([]models.ShopStock, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT day, item_id, remaining FROM shop_stock
		WHERE day = ?
		ORDER BY position
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stock []models.ShopStock
	for rows.Next() {
		var st models.ShopStock
		if err := rows.Scan(&st.Day, &st.ItemID, &st.Remaining); err != nil {
			return nil, err
		}
		stock = append(stock, st)
	}
	return stock, rows.Err()
}

// TakeShopStock 扣减库存，库存不足时返回 models.ErrSoldOut
func (s *Storage) TakeShopStock(ctx context.Context, day, itemID string, qty int) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE shop_stock SET remaining = remaining - ?
		WHERE day = ? AND item_id = ? AND remaining >= ?
	`, qty, day, itemID, qty)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrSoldOut
	}
	return nil
}
