package watch

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"signalhub/internal/config"
	"signalhub/internal/logger"
)

// Router handles watchlist API endpoints backed by the config file.
type Router struct {
	writer *config.Writer
}

func NewRouter(writer *config.Writer) *Router {
	return &Router{writer: writer}
}

// Register registers the watchlist routes
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil || r.writer == nil {
		return
	}
	group.GET("", r.handleList)
	group.POST("", r.handleAdd)
	group.DELETE("/:symbol/:interval", r.handleDelete)
}

type WatchRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval" binding:"required"`
}

func (r *Router) handleList(c *gin.Context) {
	list, err := r.writer.Watchlist()
	if err != nil {
		logger.Errorf("[watch-api] list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Symbol != list[j].Symbol {
			return list[i].Symbol < list[j].Symbol
		}
		return list[i].Interval < list[j].Interval
	})
	c.JSON(http.StatusOK, gin.H{"watchlist": list})
}

func (r *Router) handleAdd(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	entry := config.WatchEntry{Symbol: req.Symbol, Interval: req.Interval}
	if err := r.writer.UpdateWatch(entry); err != nil {
		logger.Errorf("[watch-api] add %s@%s failed: %v", req.Symbol, req.Interval, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[watch-api] added %s@%s", strings.ToUpper(req.Symbol), req.Interval)
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (r *Router) handleDelete(c *gin.Context) {
	symbol, interval := c.Param("symbol"), c.Param("interval")
	if err := r.writer.RemoveWatch(symbol, interval); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[watch-api] removed %s@%s", symbol, interval)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
