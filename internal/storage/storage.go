package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage sqlite 持久化。InTx 内回调拿到的 Storage 绑定同一事务。
type Storage struct {
	db *sql.DB
	q  querier
}

func New(dbPath string) (*Storage, error) {
	// 确保目录存在
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// sqlite 单写者，串行化所有连接
	db.SetMaxOpenConns(1)

	s := &Storage{db: db, q: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库结构失败: %w", err)
	}

	return s, nil
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS actors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		coins INTEGER NOT NULL DEFAULT 0,
		gems INTEGER NOT NULL DEFAULT 0,
		unit_exp INTEGER NOT NULL DEFAULT 0,
		leader_exp INTEGER NOT NULL DEFAULT 0,
		leader_level INTEGER NOT NULL DEFAULT 1,
		reputation INTEGER NOT NULL DEFAULT 0,
		health INTEGER NOT NULL DEFAULT 100,
		max_health INTEGER NOT NULL DEFAULT 100,
		attack INTEGER NOT NULL DEFAULT 10,
		defense INTEGER NOT NULL DEFAULT 5,
		status TEXT NOT NULL DEFAULT '',
		pity_epic INTEGER NOT NULL DEFAULT 0,
		pity_legendary INTEGER NOT NULL DEFAULT 0,
		cooldowns TEXT, -- JSON object: activity -> last time
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS unit_instances (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1,
		exp INTEGER NOT NULL DEFAULT 0,
		acquired_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (actor_id, unit_id),
		FOREIGN KEY (actor_id) REFERENCES actors(id)
	);

	CREATE TABLE IF NOT EXISTS inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		properties TEXT NOT NULL DEFAULT '{}', -- JSON object
		FOREIGN KEY (actor_id) REFERENCES actors(id)
	);

	CREATE TABLE IF NOT EXISTS battle_logs (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT,
		win INTEGER NOT NULL DEFAULT 0,
		party_power REAL,
		enemy_power REAL,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (actor_id) REFERENCES actors(id)
	);

	CREATE TABLE IF NOT EXISTS shop_stock (
		day TEXT NOT NULL, -- 2006-01-02
		item_id TEXT NOT NULL,
		remaining INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_units_actor ON unit_instances(actor_id);
	CREATE INDEX IF NOT EXISTS idx_inventory_actor ON inventory(actor_id, item_id);
	CREATE INDEX IF NOT EXISTS idx_battle_logs_actor ON battle_logs(actor_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping 健康检查
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx 在事务中执行 fn，fn 返回错误时回滚
func (s *Storage) InTx(ctx context.Context, fn func(tx *Storage) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(&Storage{db: s.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
