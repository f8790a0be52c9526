package backtest

import (
	"signalhub/internal/market"
)

// Gap 表示缺失的连续 K 线区间。
type Gap struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Count int64 `json:"count"`
}

// IntegrityReport 描述 K 线序列的覆盖情况。
type IntegrityReport struct {
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Expected int64 `json:"expected"`
	Present  int64 `json:"present"`
	Gaps     []Gap `json:"gaps"`
	// Misaligned 统计不在周期边界上的 K 线。
	Misaligned int64 `json:"misaligned"`
}

func (r IntegrityReport) Complete() bool { return len(r.Gaps) == 0 && r.Misaligned == 0 }

// CheckIntegrity 按周期步长扫描升序 K 线，找出缺口。
func CheckIntegrity(candles []market.Candle, tf Timeframe) IntegrityReport {
	if len(candles) == 0 {
		return IntegrityReport{}
	}
	step := tf.durationMillis()
	start, end := candles[0].OpenTime, candles[len(candles)-1].OpenTime
	report := IntegrityReport{
		Start:    start,
		End:      end,
		Expected: tf.ExpectedCandles(start, end),
		Present:  int64(len(candles)),
	}
	if step <= 0 {
		return report
	}

	var gaps []Gap
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].OpenTime, candles[i].OpenTime
		if (cur-start)%step != 0 {
			report.Misaligned++
		}
		missing := (cur-prev)/step - 1
		if missing <= 0 {
			continue
		}
		gaps = append(gaps, Gap{From: prev + step, To: prev + missing*step, Count: missing})
	}
	report.Gaps = gaps
	return report
}
