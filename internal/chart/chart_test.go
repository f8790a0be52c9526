package chart

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/market"
	"signalhub/internal/signals"
)

func sampleCandles() []market.Candle {
	return []market.Candle{
		{OpenTime: 0, Open: 10, High: 12, Low: 9, Close: 11},
		{OpenTime: 3_600_000, Open: 11, High: 13, Low: 10, Close: 12},
		{OpenTime: 7_200_000, Open: 12, High: 12.5, Low: 10.5, Close: 11},
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	markers := []Marker{{OpenTime: 3_600_000, Price: 12, Side: signals.Buy}}
	require.NoError(t, RenderHTML(&buf, sampleCandles(), markers, Options{Title: "BTCUSDT 1h"}))
	html := buf.String()
	assert.Contains(t, html, "BTCUSDT 1h")
	assert.Contains(t, html, "1970-01-01 01:00")
	assert.Contains(t, html, "echarts")
}

func TestRenderHTMLNoCandles(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderHTML(&buf, nil, nil, Options{}))
}

func TestMarkPoints(t *testing.T) {
	items := markPoints([]Marker{
		{OpenTime: 0, Price: 10, Side: signals.Buy, Label: "BUY 71%"},
		{OpenTime: 7_200_000, Price: 11, Side: signals.Sell},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "BUY 71%", items[0].Name)
	assert.Equal(t, "triangle", items[0].Symbol)
	assert.Equal(t, []interface{}{"1970-01-01 00:00", 10.0}, items[0].Coordinate)
	assert.Equal(t, "SELL", items[1].Name)
	assert.Equal(t, downColor, items[1].ItemStyle.Color)
}

func TestScreenshotRejectsEmptyPage(t *testing.T) {
	_, err := Screenshot(context.Background(), []byte("  "), Options{})
	assert.ErrorContains(t, err, "empty html")
}
