package database

import "context"

// migrate 追加后续版本新增的列（幂等）。
func (s *SignalLogStore) migrate(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	queries := []string{
		"ALTER TABLE signal_log ADD COLUMN failures TEXT NOT NULL DEFAULT '{}'",
	}
	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			// 忽略已存在错误
			continue
		}
	}
	return nil
}
