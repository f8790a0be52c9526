package backtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe 是 K 线周期，仅支持固定时长（分钟/小时/天/周）。
type Timeframe struct {
	label string
	d     time.Duration
}

func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q", s)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return Timeframe{}, fmt.Errorf("unsupported timeframe %q", s)
	}
	return Timeframe{label: s, d: time.Duration(n) * unit}, nil
}

func (tf Timeframe) String() string          { return tf.label }
func (tf Timeframe) Duration() time.Duration { return tf.d }

func (tf Timeframe) durationMillis() int64 { return tf.d.Milliseconds() }

// AlignRange 将 [start,end] 收缩到周期边界。
func (tf Timeframe) AlignRange(start, end int64) (int64, int64) {
	step := tf.durationMillis()
	if step <= 0 {
		return start, end
	}
	if rem := start % step; rem != 0 {
		start += step - rem
	}
	end -= end % step
	return start, end
}

// ExpectedCandles 返回对齐区间内应有的 K 线数量。
func (tf Timeframe) ExpectedCandles(alignedStart, alignedEnd int64) int64 {
	step := tf.durationMillis()
	if step <= 0 || alignedEnd < alignedStart {
		return 0
	}
	return (alignedEnd-alignedStart)/step + 1
}
