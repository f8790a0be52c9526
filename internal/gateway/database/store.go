// Package database 持久化每次汇总评估的结果（SQLite，modernc 纯 Go 驱动）。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS signal_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT    NOT NULL,
    interval      TEXT    NOT NULL,
    candle_time   INTEGER NOT NULL,
    signal        TEXT    NOT NULL,
    confidence    REAL    NOT NULL DEFAULT 0,
    buy_score     REAL    NOT NULL DEFAULT 0,
    sell_score    REAL    NOT NULL DEFAULT 0,
    close_price   REAL,
    contributing  TEXT    NOT NULL DEFAULT '[]',
    conflicts     TEXT    NOT NULL DEFAULT '[]',
    payload       TEXT    NOT NULL,
    created_at    INTEGER NOT NULL,
    UNIQUE(symbol, interval, candle_time)
);
CREATE INDEX IF NOT EXISTS idx_signal_log_symbol ON signal_log(symbol, interval, candle_time DESC);
`

// SignalLogStore 记录汇总信号，同一 symbol+interval+K 线只保留最后一次评估。
type SignalLogStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open 打开（或创建）数据库并执行建表与迁移。path 为 ":memory:" 时使用内存库。
func Open(ctx context.Context, path string) (*SignalLogStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	// 内存库每个连接独立，写入也需要串行。
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("建表失败: %w", err)
	}
	s := &SignalLogStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SignalLogStore) handle() (*sql.DB, error) {
	if s == nil {
		return nil, fmt.Errorf("signal log store 未初始化")
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("signal log store 未初始化")
	}
	return db, nil
}

func (s *SignalLogStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
