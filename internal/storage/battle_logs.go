package storage

import (
	"context"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// CreateBattleLog 写入战斗记录
func (s *Storage) CreateBattleLog(ctx context.Context, l *models.BattleLog) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO battle_logs (id, actor_id, kind, target, win, party_power, enemy_power, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.ActorID, string(l.Kind), l.Target, l.Win, l.PartyPower, l.EnemyPower, l.Detail, l.CreatedAt)
	return err
}

// ListBattleLogs 最近的战斗记录
func (s *Storage) ListBattleLogs(ctx context.Context, actorID string, limit int) ([]models.BattleLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, actor_id, kind, target, win, party_power, enemy_power, detail, created_at
		FROM battle_logs
		WHERE actor_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.BattleLog
	for rows.Next() {
		var l models.BattleLog
		var kind string
		if err := rows.Scan(&l.ID, &l.ActorID, &kind, &l.Target, &l.Win, &l.PartyPower, &l.EnemyPower, &l.Detail, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Kind = models.BattleKind(kind)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
