package metrics

import (
	"sync"
	"time"
)

// 指标属性名
const (
	AttrMethod   = "method"
	AttrPath     = "path"
	AttrStatus   = "status"
	AttrEndpoint = "endpoint"
	AttrCycle    = "cycle"
	AttrOutcome  = "outcome"
	AttrResult   = "result"
)

// Counts 进程内计数快照，/sync/status 和测试使用
type Counts struct {
	ProviderCalls   int
	ProviderErrors  int
	Cycles          int
	CycleErrors     int
	Overlaps        int
	Outcomes        map[string]int
	Delivered       int
	Dropped         int
	LastCallLatency time.Duration
}

// Recorder 记录数据源请求、同步周期、广播和 HTTP 请求指标
// 未启用 otel 时只保留进程内计数
type Recorder struct {
	mu     sync.Mutex
	counts map[string]*Counts
	otel   *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		counts: make(map[string]*Counts),
		otel:   otel,
	}
}

// RecordProviderRequest 记录一次数据源请求
func (r *Recorder) RecordProviderRequest(endpoint string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.update(endpoint, func(c *Counts) {
		c.ProviderCalls++
		c.LastCallLatency = duration
		if err != nil {
			c.ProviderErrors++
		}
	})
	r.otel.recordProviderRequest(endpoint, duration, err)
}

// RecordCycle 记录一次同步周期的耗时与结果
func (r *Recorder) RecordCycle(cycle string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.update(cycle, func(c *Counts) {
		c.Cycles++
		if err != nil {
			c.CycleErrors++
		}
	})
	r.otel.recordCycle(cycle, duration, err)
}

// RecordOverlap 周期仍在运行时到达的 tick 被丢弃
func (r *Recorder) RecordOverlap(cycle string) {
	if r == nil {
		return
	}
	r.update(cycle, func(c *Counts) { c.Overlaps++ })
	r.otel.recordOverlap(cycle)
}

// RecordReconcile 记录单场比赛的同步结果（updated/skipped/failed）
func (r *Recorder) RecordReconcile(cycle, outcome string) {
	if r == nil {
		return
	}
	r.update(cycle, func(c *Counts) {
		if c.Outcomes == nil {
			c.Outcomes = make(map[string]int)
		}
		c.Outcomes[outcome]++
	})
	r.otel.recordReconcile(cycle, outcome)
}

// RecordBroadcast 记录一次 match-updated 广播的投递/丢弃数
func (r *Recorder) RecordBroadcast(delivered, dropped int) {
	if r == nil {
		return
	}
	r.update("broadcast", func(c *Counts) {
		c.Delivered += delivered
		c.Dropped += dropped
	})
	r.otel.recordBroadcast(delivered, dropped)
}

// RecordHTTPRequest 记录 HTTP 请求
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// Snapshot 返回指定 key（endpoint / cycle / "broadcast"）的计数副本
func (r *Recorder) Snapshot(key string) Counts {
	if r == nil {
		return Counts{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counts[key]
	if !ok {
		return Counts{}
	}
	out := *c
	if c.Outcomes != nil {
		out.Outcomes = make(map[string]int, len(c.Outcomes))
		for k, v := range c.Outcomes {
			out.Outcomes[k] = v
		}
	}
	return out
}

func (r *Recorder) update(key string, fn func(c *Counts)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counts[key]
	if !ok {
		c = &Counts{}
		r.counts[key] = c
	}
	fn(c)
}
