package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"signalhub/internal/convergence"
	"signalhub/internal/store"
)

// SignalRecord 为一行 signal_log。
type SignalRecord struct {
	ID           int64              `json:"id"`
	Symbol       string             `json:"symbol"`
	Interval     string             `json:"interval"`
	CandleTime   int64              `json:"candle_time"`
	Signal       string             `json:"signal"`
	Confidence   float64            `json:"confidence"`
	BuyScore     float64            `json:"buy_score"`
	SellScore    float64            `json:"sell_score"`
	Close        *float64           `json:"close,omitempty"`
	Contributing []string           `json:"contributing"`
	Conflicts    []string           `json:"conflicts"`
	Failures     map[string]string  `json:"failures,omitempty"`
	Result       convergence.Result `json:"result"`
	CreatedAt    int64              `json:"created_at"`
}

const selectColumns = `id, symbol, interval, candle_time, signal, confidence, buy_score, sell_score,
    close_price, contributing, conflicts, failures, payload, created_at`

// Save 写入（或覆盖同一根 K 线的）评估结果，返回行 ID。
func (s *SignalLogStore) Save(ctx context.Context, symbol, interval string, res convergence.Result) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	iv := strings.ToLower(strings.TrimSpace(interval))
	if sym == "" || iv == "" {
		return 0, fmt.Errorf("symbol/interval 不能为空")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("序列化结果失败: %w", err)
	}
	contributing, _ := json.Marshal(nonNil(namesOf(res)))
	conflicts, _ := json.Marshal(nonNil(res.Conflicts))
	failures := map[string]string{}
	for name, msg := range res.Failures {
		failures[string(name)] = msg
	}
	failuresJSON, _ := json.Marshal(failures)

	var id int64
	err = db.QueryRowContext(ctx, `
        INSERT INTO signal_log
            (symbol, interval, candle_time, signal, confidence, buy_score, sell_score, close_price,
             contributing, conflicts, failures, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(symbol, interval, candle_time) DO UPDATE SET
            signal=excluded.signal, confidence=excluded.confidence, buy_score=excluded.buy_score,
            sell_score=excluded.sell_score, close_price=excluded.close_price,
            contributing=excluded.contributing, conflicts=excluded.conflicts, failures=excluded.failures,
            payload=excluded.payload, created_at=excluded.created_at
        RETURNING id`,
		sym, iv, res.Timestamp, string(res.Signal), res.ConfidencePercent, res.BuyScore, res.SellScore,
		nullIfZero(res.Close), string(contributing), string(conflicts), string(failuresJSON), string(payload),
		time.Now().UnixMilli()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("写入 signal_log 失败: %w", err)
	}
	return id, nil
}

// Latest 返回 symbol+interval 最新一条记录；无记录时返回 store.ErrNotFound。
func (s *SignalLogStore) Latest(ctx context.Context, symbol, interval string) (SignalRecord, error) {
	recs, err := s.query(ctx, `SELECT `+selectColumns+` FROM signal_log
        WHERE symbol=? AND interval=? ORDER BY candle_time DESC LIMIT 1`,
		strings.ToUpper(strings.TrimSpace(symbol)), strings.ToLower(strings.TrimSpace(interval)))
	if err != nil {
		return SignalRecord{}, err
	}
	if len(recs) == 0 {
		return SignalRecord{}, store.ErrNotFound
	}
	return recs[0], nil
}

// List 按 K 线时间倒序返回最多 limit 条；interval 为空时不过滤周期。
// onlyActive 为 true 时跳过 NONE。
func (s *SignalLogStore) List(ctx context.Context, symbol, interval string, limit int, onlyActive bool) ([]SignalRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var (
		where []string
		args  []any
	)
	where = append(where, "symbol=?")
	args = append(args, strings.ToUpper(strings.TrimSpace(symbol)))
	if iv := strings.ToLower(strings.TrimSpace(interval)); iv != "" {
		where = append(where, "interval=?")
		args = append(args, iv)
	}
	if onlyActive {
		where = append(where, "signal <> 'NONE'")
	}
	args = append(args, limit)
	return s.query(ctx, `SELECT `+selectColumns+` FROM signal_log WHERE `+strings.Join(where, " AND ")+
		` ORDER BY candle_time DESC LIMIT ?`, args...)
}

// CountBySignal 统计某 symbol 的 BUY/SELL/NONE 次数。
func (s *SignalLogStore) CountBySignal(ctx context.Context, symbol string) (map[string]int, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT signal, COUNT(*) FROM signal_log WHERE symbol=? GROUP BY signal`,
		strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var sig string
		var n int
		if err := rows.Scan(&sig, &n); err != nil {
			return nil, err
		}
		out[sig] = n
	}
	return out, rows.Err()
}

func (s *SignalLogStore) query(ctx context.Context, q string, args ...any) ([]SignalRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SignalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (SignalRecord, error) {
	var (
		rec                                   SignalRecord
		closePrice                            sql.NullFloat64
		contributing, conflicts, fails, payld string
	)
	if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Interval, &rec.CandleTime, &rec.Signal, &rec.Confidence,
		&rec.BuyScore, &rec.SellScore, &closePrice, &contributing, &conflicts, &fails, &payld, &rec.CreatedAt); err != nil {
		return SignalRecord{}, err
	}
	if closePrice.Valid {
		v := closePrice.Float64
		rec.Close = &v
	}
	if err := errors.Join(
		json.Unmarshal([]byte(contributing), &rec.Contributing),
		json.Unmarshal([]byte(conflicts), &rec.Conflicts),
		json.Unmarshal([]byte(fails), &rec.Failures),
		json.Unmarshal([]byte(payld), &rec.Result),
	); err != nil {
		return SignalRecord{}, fmt.Errorf("解析 signal_log#%d 失败: %w", rec.ID, err)
	}
	if len(rec.Failures) == 0 {
		rec.Failures = nil
	}
	return rec, nil
}

func namesOf(res convergence.Result) []string {
	out := make([]string, 0, len(res.ContributingIndicators))
	for _, n := range res.ContributingIndicators {
		out = append(out, string(n))
	}
	return out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nullIfZero(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
