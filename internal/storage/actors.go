package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

const actorColumns = `id, name, coins, gems, unit_exp, leader_exp, leader_level, reputation,
	health, max_health, attack, defense, status, pity_epic, pity_legendary, cooldowns, created_at, updated_at`

// CreateActor 新建玩家
func (s *Storage) CreateActor(ctx context.Context, a *models.Actor) error {
	cooldownsJSON, err := json.Marshal(a.Cooldowns)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO actors (`+actorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Coins, a.Gems, a.UnitExp, a.LeaderExp, a.LeaderLevel, a.Reputation,
		a.Health, a.MaxHealth, a.Attack, a.Defense, a.Status, a.Pity.Epic, a.Pity.Legendary,
		string(cooldownsJSON), a.CreatedAt, a.UpdatedAt)

	return err
}

// GetActor 读取玩家，不存在时返回 models.ErrNotRegistered
func (s *Storage) GetActor(ctx context.Context, id string) (*models.Actor, error) {
	var a models.Actor
	var cooldownsJSON sql.NullString

	err := s.q.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = ?`, id).Scan(
		&a.ID, &a.Name, &a.Coins, &a.Gems, &a.UnitExp, &a.LeaderExp, &a.LeaderLevel, &a.Reputation,
		&a.Health, &a.MaxHealth, &a.Attack, &a.Defense, &a.Status, &a.Pity.Epic, &a.Pity.Legendary,
		&cooldownsJSON, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}

	a.Cooldowns = map[models.Activity]time.Time{}
	if cooldownsJSON.Valid && cooldownsJSON.String != "" {
		if err := json.Unmarshal([]byte(cooldownsJSON.String), &a.Cooldowns); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// UpdateActor 单条语句整体写回
func (s *Storage) UpdateActor(ctx context.Context, a *models.Actor) error {
	cooldownsJSON, err := json.Marshal(a.Cooldowns)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now()

	res, err := s.q.ExecContext(ctx, `
		UPDATE actors
		SET name=?, coins=?, gems=?, unit_exp=?, leader_exp=?, leader_level=?, reputation=?,
			health=?, max_health=?, attack=?, defense=?, status=?, pity_epic=?, pity_legendary=?,
			cooldowns=?, updated_at=?
		WHERE id=?
	`, a.Name, a.Coins, a.Gems, a.UnitExp, a.LeaderExp, a.LeaderLevel, a.Reputation,
		a.Health, a.MaxHealth, a.Attack, a.Defense, a.Status, a.Pity.Epic, a.Pity.Legendary,
		string(cooldownsJSON), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotRegistered
	}
	return nil
}
