// Package logger 提供全局 printf 风格日志，底层为 zerolog。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init 设置日志级别与输出格式；pretty 为 true 时使用控制台格式。
func Init(level string, pretty bool) error {
	return InitWriter(os.Stderr, level, pretty)
}

// InitWriter 与 Init 相同，但写入指定 writer（测试用）。
func InitWriter(w io.Writer, level string, pretty bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}
	mu.Lock()
	base = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
	return nil
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// L 返回当前 logger，用于需要结构化字段的场景。
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With 返回附带 component 字段的子 logger。
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

func Debugf(format string, args ...any) {
	l := L()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	l := L()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	l := L()
	l.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	l := L()
	l.Error().Msgf(format, args...)
}
