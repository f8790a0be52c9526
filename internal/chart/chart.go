// Package chart 将 K 线和决策点渲染为 HTML（go-echarts），并可借助无头浏览器截图。
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"signalhub/internal/market"
	"signalhub/internal/signals"
)

const (
	upColor    = "#26a69a"
	downColor  = "#ef5350"
	timeLayout = "2006-01-02 15:04"
)

// Marker 标注一根 K 线上的买卖决策。
type Marker struct {
	OpenTime int64
	Price    float64
	Side     signals.Side
	Label    string
}

type Options struct {
	Title  string
	Width  int
	Height int
	// Settle 为截图前等待渲染完成的时间。
	Settle time.Duration
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "signalhub"
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 640
	}
	if o.Settle <= 0 {
		o.Settle = time.Second
	}
	return o
}

// RenderHTML 输出完整的 HTML 页面。
func RenderHTML(w io.Writer, candles []market.Candle, markers []Marker, o Options) error {
	if len(candles) == 0 {
		return errors.New("chart: no candles")
	}
	o = o.withDefaults()

	x := make([]string, len(candles))
	data := make([]opts.KlineData, len(candles))
	for i, c := range candles {
		x[i] = label(c.OpenTime)
		// echarts 的顺序为 open, close, low, high
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     fmt.Sprintf("%dpx", o.Width),
			Height:    fmt.Sprintf("%dpx", o.Height),
		}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	kline.SetXAxis(x).AddSeries("kline", data,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        upColor,
			Color0:       downColor,
			BorderColor:  upColor,
			BorderColor0: downColor,
		}),
		charts.WithMarkPointNameCoordItemOpts(markPoints(markers)...),
	)
	return kline.Render(w)
}

func markPoints(markers []Marker) []opts.MarkPointNameCoordItem {
	out := make([]opts.MarkPointNameCoordItem, 0, len(markers))
	for _, m := range markers {
		color, symbol := upColor, "triangle"
		if m.Side == signals.Sell {
			color, symbol = downColor, "pin"
		}
		name := m.Label
		if name == "" {
			name = string(m.Side)
		}
		out = append(out, opts.MarkPointNameCoordItem{
			Name:       name,
			Coordinate: []interface{}{label(m.OpenTime), m.Price},
			Symbol:     symbol,
			SymbolSize: 14,
			ItemStyle:  &opts.ItemStyle{Color: color},
		})
	}
	return out
}

func label(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timeLayout)
}

// Screenshot 用 chromedp 打开渲染好的页面并截取整页 PNG，需要本机安装 Chrome/Chromium。
func Screenshot(ctx context.Context, html []byte, o Options) ([]byte, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, errors.New("chart: empty html")
	}
	o = o.withDefaults()

	dir, err := os.MkdirTemp("", "signalhub-chart-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	page := filepath.Join(dir, "chart.html")
	if err := os.WriteFile(page, html, 0o600); err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.WindowSize(o.Width+40, o.Height+80))...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var png []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+page),
		chromedp.Sleep(o.Settle),
		chromedp.FullScreenshot(&png, 100),
	); err != nil {
		return nil, fmt.Errorf("chart screenshot: %w", err)
	}
	return png, nil
}
