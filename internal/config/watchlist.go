package config

import (
	"fmt"
	"strings"
)

// NormalizeWatchlist 统一大小写并按 symbol@interval 去重，保持原有顺序。
func NormalizeWatchlist(entries []WatchEntry) ([]WatchEntry, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]WatchEntry, 0, len(entries))
	for i, e := range entries {
		e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
		e.Interval = strings.ToLower(strings.TrimSpace(e.Interval))
		if e.Symbol == "" || e.Interval == "" {
			return nil, fmt.Errorf("watchlist[%d]: symbol and interval are required", i)
		}
		key := e.Symbol + "@" + e.Interval
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
