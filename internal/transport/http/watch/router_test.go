package watch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/config"
)

func setup(t *testing.T) (*gin.Engine, *config.Writer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "signalhub.toml")
	require.NoError(t, config.WriteDefault(path))
	w := config.NewWriter(path)
	r := gin.New()
	NewRouter(w).Register(r.Group("/api/v1/watchlist"))
	return r, w
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestWatchlistLifecycle(t *testing.T) {
	r, w := setup(t)

	rec := do(r, http.MethodPost, "/api/v1/watchlist", `{"symbol":"ethusdt","interval":"4h"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Watchlist []config.WatchEntry `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []config.WatchEntry{
		{Symbol: "BTCUSDT", Interval: "1h"},
		{Symbol: "ETHUSDT", Interval: "4h"},
	}, body.Watchlist)

	rec = do(r, http.MethodDelete, "/api/v1/watchlist/BTCUSDT/1h", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	list, err := w.Watchlist()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	rec = do(r, http.MethodDelete, "/api/v1/watchlist/BTCUSDT/1h", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/watchlist", `{"symbol":"ETHUSDT"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
