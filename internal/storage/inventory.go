package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// AddItem 发放道具。没有实例属性的道具堆叠在同一行，有实例属性的各占一行。
func (s *Storage) AddItem(ctx context.Context, actorID, itemID string, qty int, props map[string]int) error {
	if len(props) == 0 {
		res, err := s.q.ExecContext(ctx, `
			UPDATE inventory SET quantity = quantity + ?
			WHERE actor_id = ? AND item_id = ? AND properties = '{}'
		`, qty, actorID, itemID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO inventory (actor_id, item_id, quantity, properties) VALUES (?, ?, ?, '{}')
		`, actorID, itemID, qty)
		return err
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO inventory (actor_id, item_id, quantity, properties) VALUES (?, ?, ?, ?)
	`, actorID, itemID, qty, string(propsJSON))
	return err
}

// ListItems 玩家背包
func (s *Storage) ListItems(ctx context.Context, actorID string) ([]models.InventoryEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, actor_id, item_id, quantity, properties
		FROM inventory
		WHERE actor_id = ? AND quantity > 0
		ORDER BY id
	`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InventoryEntry
	for rows.Next() {
		var e models.InventoryEntry
		var propsJSON string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ItemID, &e.Quantity, &propsJSON); err != nil {
			return nil, err
		}
		if propsJSON != "" && propsJSON != "{}" {
			if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
				return nil, err
			}
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// TakeItem 从某背包行取走一个，返回取走前的条目
func (s *Storage) TakeItem(ctx context.Context, actorID string, entryID int64) (*models.InventoryEntry, error) {
	var e models.InventoryEntry
	var propsJSON string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, actor_id, item_id, quantity, properties FROM inventory
		WHERE id = ? AND actor_id = ? AND quantity > 0
	`, entryID, actorID).Scan(&e.ID, &e.ActorID, &e.ItemID, &e.Quantity, &propsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if propsJSON != "" && propsJSON != "{}" {
		if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
			return nil, err
		}
	}

	if e.Quantity <= 1 {
		_, err = s.q.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, entryID)
	} else {
		_, err = s.q.ExecContext(ctx, `UPDATE inventory SET quantity = quantity - 1 WHERE id = ?`, entryID)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
