package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// CandleCSVOptions 控制导出精度。
type CandleCSVOptions struct {
	PricePrecision int
}

const (
	// PrecisionAuto 根据 K 线价格区间自动决定精度。
	PrecisionAuto = math.MinInt32
	// PrecisionRaw 表示保留原始精度（等价于 strconv.FormatFloat(..., -1, 64)）
	PrecisionRaw = -1
)

var csvHeader = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// BuildCandleCSV 生成 CSV 数据，首行包含列头，可被 ParseCandleCSV 读回。
func BuildCandleCSV(candles []Candle, opts CandleCSVOptions) string {
	if len(candles) == 0 {
		return ""
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecision(candles)
	}
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ",") + "\n")
	for _, c := range candles {
		b.WriteString(strconv.FormatInt(c.OpenTime, 10))
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			b.WriteByte(',')
			b.WriteString(formatPrice(v, precision))
		}
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Volume, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(c.CloseTime, 10))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseCandleCSV reads open_time,open,high,low,close,volume[,close_time] rows.
// A header row is detected and skipped when its first cell is not numeric.
func ParseCandleCSV(r io.Reader) ([]Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var out []Candle
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 {
			if _, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); err != nil {
				continue
			}
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv line %d: want at least 6 columns, got %d", line, len(rec))
		}
		c, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseRecord(rec []string) (Candle, error) {
	var c Candle
	var err error
	if c.OpenTime, err = strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); err != nil {
		return c, fmt.Errorf("open_time: %w", err)
	}
	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return c, fmt.Errorf("%s: %w", csvHeader[i+1], err)
		}
		*dst = v
	}
	if len(rec) > 6 && strings.TrimSpace(rec[6]) != "" {
		if c.CloseTime, err = strconv.ParseInt(strings.TrimSpace(rec[6]), 10, 64); err != nil {
			return c, fmt.Errorf("close_time: %w", err)
		}
	}
	return c, nil
}

func autoPrecision(candles []Candle) int {
	maxVal := 0.0
	for _, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			if abs := math.Abs(v); abs > maxVal {
				maxVal = abs
			}
		}
	}
	switch {
	case maxVal >= 1000:
		return 1
	case maxVal >= 100:
		return 2
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
