package backtest

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"signalhub/internal/chart"
)

// Handler 暴露回测任务的 Gin 接口。
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler { return &Handler{mgr: mgr} }

// Register 挂载到 group 下：POST /backtest, GET /backtest, GET /backtest/:id, GET /backtest/:id/chart。
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/backtest", h.handleSubmit)
	group.GET("/backtest", h.handleJobs)
	group.GET("/backtest/:id", h.handleStatus)
	group.GET("/backtest/:id/chart", h.handleChart)
}

func (h *Handler) handleSubmit(c *gin.Context) {
	var req struct {
		Symbol   string `json:"symbol" binding:"required"`
		Interval string `json:"interval" binding:"required"`
		Limit    int    `json:"limit"`
		StartTS  int64  `json:"start_ts"`
		EndTS    int64  `json:"end_ts"`
		Horizon  int    `json:"horizon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := h.mgr.Submit(Params{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Limit:    req.Limit,
		Start:    req.StartTS,
		End:      req.EndTS,
		Horizon:  req.Horizon,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (h *Handler) handleStatus(c *gin.Context) {
	job, ok := h.mgr.JobSnapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (h *Handler) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.mgr.JobsSnapshot()})
}

func (h *Handler) handleChart(c *gin.Context) {
	candles, rep, err := h.mgr.Candles(c.Param("id"))
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	title := fmt.Sprintf("%s %s backtest", rep.Symbol, rep.Interval)
	if err := chart.RenderHTML(&buf, candles, Markers(rep), chart.Options{Title: title}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Markers 将回测决策转换为图表标记。
func Markers(rep *Report) []chart.Marker {
	if rep == nil {
		return nil
	}
	out := make([]chart.Marker, 0, len(rep.Decisions))
	for _, d := range rep.Decisions {
		out = append(out, chart.Marker{
			OpenTime: d.OpenTime,
			Price:    d.Close,
			Side:     d.Signal,
			Label:    fmt.Sprintf("%s %.0f%%", d.Signal, d.Confidence),
		})
	}
	return out
}
