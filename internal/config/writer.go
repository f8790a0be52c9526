package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Writer 负责配置文件的原子写入与备份。
type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string { return w.path }

// Write 先备份旧文件，再写临时文件并 rename。
func (w *Writer) Write(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(cfg)
}

func (w *Writer) writeLocked(cfg Config) error {
	if err := w.backup(); err != nil {
		return fmt.Errorf("备份失败: %w", err)
	}
	data, err := encode(w.path, cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("替换配置文件失败: %w", err)
	}
	return nil
}

// WriteDefault 生成默认配置文件；文件已存在时拒绝覆盖。
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return NewWriter(path).Write(Default())
}

// Watchlist 从磁盘读取当前 watchlist，便于运行中热更新。
func (w *Writer) Watchlist() ([]WatchEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	return cfg.Watchlist, nil
}

// UpdateWatch 添加或替换 watchlist 中的 symbol+interval。
func (w *Writer) UpdateWatch(entry WatchEntry) error {
	entry.Symbol = strings.ToUpper(strings.TrimSpace(entry.Symbol))
	entry.Interval = strings.ToLower(strings.TrimSpace(entry.Interval))
	if entry.Symbol == "" || entry.Interval == "" {
		return fmt.Errorf("symbol and interval are required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	for _, cur := range cfg.Watchlist {
		if strings.EqualFold(cur.Symbol, entry.Symbol) && strings.EqualFold(cur.Interval, entry.Interval) {
			return nil
		}
	}
	cfg.Watchlist = append(cfg.Watchlist, entry)
	return w.writeLocked(cfg)
}

// RemoveWatch 删除 watchlist 条目。
func (w *Writer) RemoveWatch(symbol, interval string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	kept := cfg.Watchlist[:0]
	found := false
	for _, cur := range cfg.Watchlist {
		if strings.EqualFold(cur.Symbol, symbol) && strings.EqualFold(cur.Interval, interval) {
			found = true
			continue
		}
		kept = append(kept, cur)
	}
	if !found {
		return fmt.Errorf("watch '%s@%s' 不存在", symbol, interval)
	}
	cfg.Watchlist = kept
	return w.writeLocked(cfg)
}

func (w *Writer) backup() error {
	src, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	backupDir := filepath.Join(filepath.Dir(w.path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
	name := fmt.Sprintf("%s_%s%s", base, time.Now().Format("20060102_150405.000"), filepath.Ext(w.path))
	dst, err := os.Create(filepath.Join(backupDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	w.cleanOldBackups(backupDir, base+"_", 10)
	return nil
}

func (w *Writer) cleanOldBackups(dir, prefix string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}
	if len(backups) <= keep {
		return
	}
	sort.Strings(backups)
	for i := 0; i < len(backups)-keep; i++ {
		os.Remove(backups[i])
	}
}
