package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// CreateUnitInstance 新增玩家武将
func (s *Storage) CreateUnitInstance(ctx context.Context, u *models.UnitInstance) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO unit_instances (id, actor_id, unit_id, level, exp, acquired_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.ActorID, u.UnitID, u.Level, u.Exp, u.AcquiredAt)
	return err
}

// GetUnitInstance 按实例ID读取，不存在时返回 models.ErrUnitNotOwned
func (s *Storage) GetUnitInstance(ctx context.Context, id string) (*models.UnitInstance, error) {
	var u models.UnitInstance
	err := s.q.QueryRowContext(ctx, `
		SELECT id, actor_id, unit_id, level, exp, acquired_at FROM unit_instances WHERE id = ?
	`, id).Scan(&u.ID, &u.ActorID, &u.UnitID, &u.Level, &u.Exp, &u.AcquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUnitNotOwned
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUnitInstances 玩家的全部武将，按等级从高到低
func (s *Storage) ListUnitInstances(ctx context.Context, actorID string) ([]models.UnitInstance, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, actor_id, unit_id, level, exp, acquired_at
		FROM unit_instances
		WHERE actor_id = ?
		ORDER BY level DESC, acquired_at ASC
	`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.UnitInstance
	for rows.Next() {
		var u models.UnitInstance
		if err := rows.Scan(&u.ID, &u.ActorID, &u.UnitID, &u.Level, &u.Exp, &u.AcquiredAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// UpdateUnitLevelExp 写回等级与经验
func (s *Storage) UpdateUnitLevelExp(ctx context.Context, id string, level, exp int) error {
	_, err := s.q.ExecContext(ctx, `UPDATE unit_instances SET level=?, exp=? WHERE id=?`, level, exp, id)
	return err
}
