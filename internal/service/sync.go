package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	CycleAllMatches     = "all-matches"
	CycleCurrentMatches = "current-matches"
)

var (
	ErrUnknownCycle = errors.New("unknown sync cycle")
	ErrCycleRunning = errors.New("sync cycle already running")
)

// CycleState 周期运行状态
type CycleState int32

const (
	StateIdle CycleState = iota
	StateRunning
)

func (s CycleState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// ListFunc 拉取比赛列表
type ListFunc func(ctx context.Context) ([]model.MatchSummary, error)

// RunResult 一次周期运行的汇总
type RunResult struct {
	Cycle   string
	Listed  int
	Updated int
	Skipped int
	Failed  int
	Aborted bool  // 列表拉取失败、写库失败或被取消时为 true
	Err     error // 导致中止的错误
}

// CycleStatus 周期状态（/sync/status 输出）
type CycleStatus struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	Interval            string    `json:"interval"`
	Runs                int       `json:"runs"`
	Overlaps            int       `json:"overlaps"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastStart           time.Time `json:"lastStart"`
	LastFinish          time.Time `json:"lastFinish"`
	LastListed          int       `json:"lastListed"`
	LastUpdated         int       `json:"lastUpdated"`
	LastSkipped         int       `json:"lastSkipped"`
	LastFailed          int       `json:"lastFailed"`
	LastError           string    `json:"lastError,omitempty"`
}

// Cycle 一个独立的周期：列表 → 逐场同步
// state 作为运行守卫，同一周期同一时刻只允许一次运行
type Cycle struct {
	name     string
	interval time.Duration
	list     ListFunc

	state    atomic.Int32
	statusMu sync.RWMutex
	status   CycleStatus
}

func newCycle(name string, interval time.Duration, list ListFunc) *Cycle {
	return &Cycle{
		name:     name,
		interval: interval,
		list:     list,
		status:   CycleStatus{Name: name, Interval: interval.String()},
	}
}

func (c *Cycle) tryAcquire() bool {
	return c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning))
}

func (c *Cycle) releaseRun() {
	c.state.Store(int32(StateIdle))
}

func (c *Cycle) snapshot() CycleStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	st := c.status
	st.State = CycleState(c.state.Load()).String()
	return st
}

// SyncScheduler 驱动 all-matches / current-matches 两个独立周期
type SyncScheduler struct {
	reconciler *Reconciler
	publisher  interfaces.MatchPublisher
	logger     *logrus.Logger
	recorder   *metrics.Recorder
	now        func() time.Time

	cycles []*Cycle
	byName map[string]*Cycle

	startMu  sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSyncScheduler 创建调度器，publisher 可为 nil
func NewSyncScheduler(
	provider interfaces.MatchProvider,
	reconciler *Reconciler,
	publisher interfaces.MatchPublisher,
	cfg config.SyncConfig,
	logger *logrus.Logger,
	recorder *metrics.Recorder,
) *SyncScheduler {
	s := &SyncScheduler{
		reconciler: reconciler,
		publisher:  publisher,
		logger:     logger,
		recorder:   recorder,
		now:        time.Now,
		byName:     make(map[string]*Cycle),
	}
	s.addCycle(newCycle(CycleAllMatches, cfg.AllMatchesInterval, provider.FetchAllMatches))
	s.addCycle(newCycle(CycleCurrentMatches, cfg.CurrentMatchesInterval, provider.FetchCurrentMatches))
	return s
}

func (s *SyncScheduler) addCycle(c *Cycle) {
	s.cycles = append(s.cycles, c)
	s.byName[c.name] = c
}

// Start 每个周期一个 goroutine，启动时立即跑一次，之后按间隔触发；重复调用无副作用
func (s *SyncScheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, c := range s.cycles {
		s.wg.Add(1)
		go s.loop(runCtx, c)
	}
	s.logger.WithField("cycles", len(s.cycles)).Info("同步调度已启动")
}

// Stop 取消进行中的周期并等待其退出；未启动时直接返回，重复调用无副作用
func (s *SyncScheduler) Stop() {
	s.startMu.Lock()
	started := s.started
	cancel := s.cancel
	s.startMu.Unlock()
	if !started {
		return
	}

	s.stopOnce.Do(func() {
		cancel()
		s.wg.Wait()
		s.logger.Info("同步调度已停止")
	})
}

// Status 各周期当前状态
func (s *SyncScheduler) Status() []CycleStatus {
	out := make([]CycleStatus, 0, len(s.cycles))
	for _, c := range s.cycles {
		out = append(out, c.snapshot())
	}
	return out
}

// CycleNames 周期名称列表
func (s *SyncScheduler) CycleNames() []string {
	names := make([]string, 0, len(s.cycles))
	for _, c := range s.cycles {
		names = append(names, c.name)
	}
	return names
}

// RunOnce 同步执行一次指定周期；周期正在运行时返回 ErrCycleRunning
func (s *SyncScheduler) RunOnce(ctx context.Context, name string) (RunResult, error) {
	c, ok := s.byName[name]
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrUnknownCycle, name)
	}
	if !c.tryAcquire() {
		c.statusMu.Lock()
		c.status.Overlaps++
		c.statusMu.Unlock()
		s.recorder.RecordOverlap(name)
		return RunResult{Cycle: name}, fmt.Errorf("%w: %s", ErrCycleRunning, name)
	}
	defer c.releaseRun()
	return s.run(ctx, c), nil
}

func (s *SyncScheduler) loop(ctx context.Context, c *Cycle) {
	defer s.wg.Done()

	s.tick(ctx, c)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, c)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context, c *Cycle) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx, c.name); errors.Is(err, ErrCycleRunning) {
		s.logger.WithField(logging.FieldCycle, c.name).Warn("上一次同步尚未结束，跳过本次触发")
	}
}

// run 列表失败整体中止；单场 Skipped 继续；Failed（写库失败）中止本周期剩余部分
func (s *SyncScheduler) run(ctx context.Context, c *Cycle) RunResult {
	start := s.now()
	c.statusMu.Lock()
	c.status.LastStart = start
	c.statusMu.Unlock()

	result := RunResult{Cycle: c.name}
	log := s.logger.WithField(logging.FieldCycle, c.name)

	summaries, err := c.list(ctx)
	if err != nil {
		result.Aborted = true
		result.Err = fmt.Errorf("拉取%s列表失败: %w", c.name, err)
		log.WithError(err).Warn("比赛列表拉取失败，本周期中止")
		s.finish(c, start, result)
		return result
	}
	result.Listed = len(summaries)

	for _, summary := range summaries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Aborted = true
			result.Err = ctxErr
			break
		}

		outcome := s.reconciler.Reconcile(ctx, summary)
		s.recorder.RecordReconcile(c.name, outcome.Kind.String())

		switch outcome.Kind {
		case OutcomeUpdated:
			result.Updated++
			if s.publisher != nil {
				s.publisher.Publish(ctx, outcome.Match)
			}
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeFailed:
			result.Failed++
			result.Aborted = true
			result.Err = fmt.Errorf("比赛%s写库失败: %w", outcome.MatchID, outcome.Err)
		}
		if outcome.Kind == OutcomeFailed {
			break
		}
	}

	s.finish(c, start, result)
	log.WithFields(logrus.Fields{
		"listed":                result.Listed,
		"updated":               result.Updated,
		"skipped":               result.Skipped,
		"failed":                result.Failed,
		logging.FieldDurationMS: s.now().Sub(start).Milliseconds(),
	}).Info("同步周期完成")
	return result
}

func (s *SyncScheduler) finish(c *Cycle, start time.Time, result RunResult) {
	finished := s.now()
	s.recorder.RecordCycle(c.name, finished.Sub(start), result.Err)

	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.Runs++
	c.status.LastFinish = finished
	c.status.LastListed = result.Listed
	c.status.LastUpdated = result.Updated
	c.status.LastSkipped = result.Skipped
	c.status.LastFailed = result.Failed
	if result.Err != nil {
		c.status.ConsecutiveFailures++
		c.status.LastError = result.Err.Error()
	} else {
		c.status.ConsecutiveFailures = 0
		c.status.LastError = ""
	}
}
