// Package api 提供 signalhub 的 Gin HTTP 接口。
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"signalhub/internal/backtest"
	"signalhub/internal/config"
	"signalhub/internal/logger"
	"signalhub/internal/market"
	"signalhub/internal/metrics"
	"signalhub/internal/service"
	"signalhub/internal/store"
	"signalhub/internal/transport/http/watch"
)

type Server struct {
	addr            string
	router          *gin.Engine
	svc             *service.Service
	shutdownTimeout time.Duration
}

type ServerParams struct {
	Addr    string
	Service *service.Service
	// Backtests、Metrics、Writer 均可为 nil，对应路由不注册。
	Backtests       *backtest.Manager
	Metrics         *metrics.Metrics
	Writer          *config.Writer
	DefaultInterval string
	ShutdownTimeout time.Duration
}

func NewServer(p ServerParams) (*Server, error) {
	if p.Service == nil {
		return nil, errors.New("service 不能为空")
	}
	if p.Addr == "" {
		p.Addr = ":8080"
	}
	if p.DefaultInterval == "" {
		p.DefaultInterval = "1h"
	}
	if p.ShutdownTimeout <= 0 {
		p.ShutdownTimeout = 5 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), accessLog())

	s := &Server{addr: p.Addr, router: router, svc: p.Service, shutdownTimeout: p.ShutdownTimeout}
	h := &handlers{svc: p.Service, defaultInterval: p.DefaultInterval}

	router.GET("/healthz", h.handleHealth)
	if p.Metrics != nil {
		router.GET("/metrics", gin.WrapH(p.Metrics.Handler()))
	}
	v1 := router.Group("/api/v1")
	v1.POST("/evaluate", h.handleEvaluate)
	v1.GET("/signals/:symbol", h.handleSignal)
	v1.GET("/signals/:symbol/latest", h.handleLatest)
	v1.GET("/signals/:symbol/history", h.handleHistory)
	v1.GET("/indicators/:symbol", h.handleIndicators)
	if p.Backtests != nil {
		backtest.NewHandler(p.Backtests).Register(v1)
	}
	if p.Writer != nil {
		watch.NewRouter(p.Writer).Register(v1.Group("/watchlist"))
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http: listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

type handlers struct {
	svc             *service.Service
	defaultInterval string
}

func (h *handlers) interval(c *gin.Context) string {
	if iv := strings.TrimSpace(c.Query("interval")); iv != "" {
		return iv
	}
	return h.defaultInterval
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLogDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "warmup": h.svc.Engine().Warmup()})
}

type evaluateRequest struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Candles  []market.Candle `json:"candles"`
}

// handleEvaluate 请求体带 candles 时直接评估，否则按 symbol/interval 拉取。
func (h *handlers) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Candles) > 0 {
		res, err := h.svc.EvaluateCandles(c.Request.Context(), req.Candles)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": res})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candles 或 symbol 必填"})
		return
	}
	if req.Interval == "" {
		req.Interval = h.defaultInterval
	}
	res, err := h.svc.Evaluate(c.Request.Context(), req.Symbol, req.Interval)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (h *handlers) handleSignal(c *gin.Context) {
	res, err := h.svc.Evaluate(c.Request.Context(), c.Param("symbol"), h.interval(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (h *handlers) handleLatest(c *gin.Context) {
	rec, err := h.svc.Latest(c.Request.Context(), c.Param("symbol"), h.interval(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (h *handlers) handleHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	active, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	recs, err := h.svc.History(c.Request.Context(), c.Param("symbol"), c.Query("interval"), limit, active)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (h *handlers) handleIndicators(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context(), c.Param("symbol"), h.interval(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
