// Package report 将评估结果、回测与指标快照渲染为终端表格。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"signalhub/internal/analysis/indicator"
	"signalhub/internal/backtest"
	"signalhub/internal/convergence"
	"signalhub/internal/signals"
)

// PrettyJSON 对任意值做缩进序列化；失败时返回 fmt 格式。
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// TrimTo 限制字符串长度，超长则追加省略号
func TrimTo(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	var buf bytes.Buffer
	buf.WriteString(s[:max])
	buf.WriteString("...")
	return buf.String()
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.Style().Title.Format = text.FormatDefault
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func colorSide(side signals.Side) string {
	switch side {
	case signals.Buy:
		return text.FgGreen.Sprint(string(side))
	case signals.Sell:
		return text.FgRed.Sprint(string(side))
	default:
		return string(side)
	}
}

// ResultTable 渲染一次汇总评估：每个指标一行，末尾为汇总。
func ResultTable(title string, res convergence.Result) string {
	t := newTable(title)
	t.AppendHeader(table.Row{"indicator", "signal", "details"})
	for _, s := range res.PerIndicatorSignals {
		detail := ""
		if s.Details != nil {
			if b, err := json.Marshal(s.Details); err == nil {
				detail = TrimTo(string(b), 80)
			}
		}
		if msg, ok := res.Failures[s.Indicator]; ok {
			detail = "failed: " + TrimTo(msg, 72)
		}
		t.AppendRow(table.Row{s.Indicator, colorSide(s.Signal), detail})
	}
	t.AppendFooter(table.Row{
		"result",
		colorSide(res.Signal),
		fmt.Sprintf("confidence %.2f%%  buy %.2f  sell %.2f", res.ConfidencePercent, res.BuyScore, res.SellScore),
	})
	out := t.Render()
	if len(res.Conflicts) > 0 {
		out += "\nconflicts:\n  - " + strings.Join(res.Conflicts, "\n  - ")
	}
	return out
}

// BacktestTable 渲染回测汇总与逐指标计数。
func BacktestTable(rep backtest.Report) string {
	summary := newTable(fmt.Sprintf("%s %s backtest (%d bars, horizon %d)", rep.Symbol, rep.Interval, rep.Evaluated, rep.Horizon))
	summary.AppendHeader(table.Row{"side", "decisions", "resolved", "hits", "hit rate", "avg edge %"})
	for _, row := range []struct {
		side signals.Side
		st   backtest.SideStats
	}{{signals.Buy, rep.Buy}, {signals.Sell, rep.Sell}} {
		summary.AppendRow(table.Row{
			colorSide(row.side), row.st.Count, row.st.Resolved, row.st.Hits,
			fmt.Sprintf("%.1f%%", row.st.HitRate*100), row.st.AvgEdge.StringFixed(2),
		})
	}

	per := newTable("per indicator")
	per.AppendHeader(table.Row{"indicator", "buy", "sell"})
	names := make([]string, 0, len(rep.PerIndicator))
	for name := range rep.PerIndicator {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		c := rep.PerIndicator[signals.Name(name)]
		per.AppendRow(table.Row{name, c.Buy, c.Sell})
	}

	out := summary.Render() + "\n" + per.Render()
	if rep.Integrity != nil && !rep.Integrity.Complete() {
		out += fmt.Sprintf("\nwarning: %d gaps, %d misaligned candles", len(rep.Integrity.Gaps), rep.Integrity.Misaligned)
	}
	if rep.Failures > 0 {
		out += fmt.Sprintf("\nwarning: %d generator failures", rep.Failures)
	}
	return out
}

// IndicatorTable 渲染指标快照（按名称排序）。
func IndicatorTable(rep indicator.Report) string {
	t := newTable(fmt.Sprintf("%s %s indicators (%d candles)", rep.Symbol, rep.Interval, rep.Count))
	t.AppendHeader(table.Row{"indicator", "latest", "state", "note"})
	keys := make([]string, 0, len(rep.Values))
	for k := range rep.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rep.Values[k]
		t.AppendRow(table.Row{k, fmt.Sprintf("%.4f", v.Latest), v.State, v.Note})
	}
	if f := rep.Flow; f != nil {
		t.AppendFooter(table.Row{"taker flow", f.Delta.String(), f.Divergence, "buy share " + f.BuyShare.String()})
	}
	out := t.Render()
	if len(rep.Divergences) > 0 {
		d := newTable("divergences")
		d.AppendHeader(table.Row{"oscillator", "type", "polarity", "bars ago"})
		for _, div := range rep.Divergences {
			d.AppendRow(table.Row{div.Oscillator, div.Type, div.Polarity, div.BarsAgo})
		}
		out += "\n" + d.Render()
	}
	for _, w := range rep.Warnings {
		out += "\nwarning: " + w
	}
	return out
}
