package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signalhub/internal/logger"
	"signalhub/internal/market"
	"signalhub/internal/metrics"
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Params 描述一次回测任务的请求参数。
type Params struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	// Limit 为最近 K 线数量；Start/End（毫秒）非零时按区间拉取。
	Limit   int   `json:"limit,omitempty"`
	Start   int64 `json:"start,omitempty"`
	End     int64 `json:"end,omitempty"`
	Horizon int   `json:"horizon,omitempty"`
}

// Job 用于在内存中跟踪任务进度。
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Params    Params    `json:"params"`
	Total     int64     `json:"total"`
	Completed int64     `json:"completed"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
	Report    *Report   `json:"report,omitempty"`

	candles []market.Candle
}

func (j *Job) copy() Job {
	if j == nil {
		return Job{}
	}
	out := *j
	out.candles = nil
	return out
}

// Loader 为任务加载 K 线。
type Loader func(ctx context.Context, p Params) ([]market.Candle, error)

type ManagerConfig struct {
	Horizon    int
	MaxCandles int
	Workers    int
	// Timeout 限制单个任务的运行时间。
	Timeout time.Duration
}

// Manager 在后台运行回测任务并保存结果。
type Manager struct {
	ev      Evaluator
	load    Loader
	cfg     ManagerConfig
	metrics *metrics.Metrics

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

var ErrJobNotFound = errors.New("backtest job not found")

func NewManager(ev Evaluator, load Loader, cfg ManagerConfig, m *metrics.Metrics) *Manager {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 12
	}
	if cfg.MaxCandles <= 0 {
		cfg.MaxCandles = 1500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Manager{ev: ev, load: load, cfg: cfg, metrics: m, jobs: make(map[string]*Job)}
}

func (m *Manager) normalize(p Params) (Params, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	p.Interval = strings.TrimSpace(p.Interval)
	if p.Symbol == "" || p.Interval == "" {
		return p, errors.New("symbol and interval are required")
	}
	if p.Start > 0 && p.End > 0 && p.End <= p.Start {
		return p, fmt.Errorf("end %d must be after start %d", p.End, p.Start)
	}
	if p.Limit <= 0 || p.Limit > m.cfg.MaxCandles {
		p.Limit = m.cfg.MaxCandles
	}
	if p.Horizon <= 0 {
		p.Horizon = m.cfg.Horizon
	}
	return p, nil
}

// Submit 校验参数并在后台启动任务，立即返回任务快照。
func (m *Manager) Submit(p Params) (Job, error) {
	p, err := m.normalize(p)
	if err != nil {
		return Job{}, err
	}
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Params:    p,
		StartedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := job.copy()
	m.mu.Unlock()
	m.metrics.ObserveBacktest(JobStatusPending)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(job.ID, p)
	}()
	return snapshot, nil
}

// RunNow 同步执行，供 CLI 使用。
func (m *Manager) RunNow(ctx context.Context, p Params, candles []market.Candle) (Report, error) {
	p, err := m.normalize(p)
	if err != nil {
		return Report{}, err
	}
	if candles == nil {
		if candles, err = m.load(ctx, p); err != nil {
			return Report{}, err
		}
	}
	return Run(ctx, m.ev, candles, Options{
		Symbol:   p.Symbol,
		Interval: p.Interval,
		Horizon:  p.Horizon,
		Workers:  m.cfg.Workers,
	})
}

func (m *Manager) run(id string, p Params) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	m.update(id, func(j *Job) { j.Status = JobStatusRunning })
	candles, err := m.load(ctx, p)
	if err != nil {
		m.fail(id, fmt.Errorf("load candles: %w", err))
		return
	}
	rep, err := Run(ctx, m.ev, candles, Options{
		Symbol:   p.Symbol,
		Interval: p.Interval,
		Horizon:  p.Horizon,
		Workers:  m.cfg.Workers,
		Progress: func(done, total int) {
			m.update(id, func(j *Job) {
				j.Total = int64(total)
				if int64(done) > j.Completed {
					j.Completed = int64(done)
				}
			})
		},
	})
	if err != nil {
		m.fail(id, err)
		return
	}
	m.update(id, func(j *Job) {
		j.Status = JobStatusDone
		j.Report = &rep
		j.candles = candles
		j.Message = fmt.Sprintf("%d decisions over %d bars", len(rep.Decisions), rep.Evaluated)
	})
	m.metrics.ObserveBacktest(JobStatusDone)
	logger.Infof("backtest %s done: %s %s decisions=%d", id, p.Symbol, p.Interval, len(rep.Decisions))
}

func (m *Manager) fail(id string, err error) {
	m.update(id, func(j *Job) {
		j.Status = JobStatusFailed
		j.Message = err.Error()
	})
	m.metrics.ObserveBacktest(JobStatusFailed)
	logger.Warnf("backtest %s failed: %v", id, err)
}

func (m *Manager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = time.Now()
	}
}

// JobSnapshot 返回任务副本。
func (m *Manager) JobSnapshot(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.copy(), true
}

// JobsSnapshot 按开始时间倒序返回全部任务。
func (m *Manager) JobsSnapshot() []Job {
	m.mu.RLock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := j.copy()
		cp.Report = nil
		out = append(out, cp)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}

// Candles 返回已完成任务使用的 K 线，用于绘图。
func (m *Manager) Candles(id string) ([]market.Candle, *Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil, ErrJobNotFound
	}
	if j.Status != JobStatusDone || j.Report == nil {
		return nil, nil, fmt.Errorf("backtest job %s is %s", id, j.Status)
	}
	return j.candles, j.Report, nil
}

// Wait 等待所有后台任务结束。
func (m *Manager) Wait() { m.wg.Wait() }
