package metrics

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Validation sources reported by IncrementValidation.
const (
	SourceDatabase = "database"
	SourceCache    = "cache"
	SourceModel    = "model"
)

// EndpointMetrics are the counters of one route
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

type endpoint struct {
	requests, errors, latency atomic.Int64
}

// Metrics holds the process-wide counters. All methods are safe for
// concurrent use.
type Metrics struct {
	started time.Time

	requests struct{ total, failed, latency atomic.Int64 }

	validations struct{ database, cache, model atomic.Int64 }

	llm struct{ calls, errors, latency atomic.Int64 }

	nodes struct{ created, duplicates atomic.Int64 }

	calendar struct{ implements, errors, events, spreadsheets atomic.Int64 }

	quiz struct{ generated, submitted, correct atomic.Int64 }

	ws struct{ connections, in, out atomic.Int64 }

	mu        sync.RWMutex
	endpoints map[string]*endpoint
}

var (
	global *Metrics
	once   sync.Once
)

func newMetrics() *Metrics {
	return &Metrics{started: time.Now(), endpoints: make(map[string]*endpoint)}
}

// Init creates the process-wide instance
func Init() {
	once.Do(func() { global = newMetrics() })
}

// Get returns the process-wide instance
func Get() *Metrics {
	Init()
	return global
}

// IncrementRequests counts one HTTP request
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	m.requests.total.Add(1)
	m.requests.latency.Add(latencyMs)
	if !success {
		m.requests.failed.Add(1)
	}
}

// IncrementValidation counts a resolved validation by the layer that answered
func (m *Metrics) IncrementValidation(source string) {
	switch source {
	case SourceDatabase:
		m.validations.database.Add(1)
	case SourceCache:
		m.validations.cache.Add(1)
	default:
		m.validations.model.Add(1)
	}
}

// IncrementLLMCall counts one completion request
func (m *Metrics) IncrementLLMCall(success bool, latencyMs int64) {
	m.llm.calls.Add(1)
	m.llm.latency.Add(latencyMs)
	if !success {
		m.llm.errors.Add(1)
	}
}

// IncrementNodeCreate counts an accepted or rejected node
func (m *Metrics) IncrementNodeCreate(duplicate bool) {
	if duplicate {
		m.nodes.duplicates.Add(1)
		return
	}
	m.nodes.created.Add(1)
}

// IncrementImplement counts a calendar export and the events it created
func (m *Metrics) IncrementImplement(success bool, events int) {
	m.calendar.implements.Add(1)
	m.calendar.events.Add(int64(events))
	if !success {
		m.calendar.errors.Add(1)
	}
}

func (m *Metrics) IncrementScheduleExport() { m.calendar.spreadsheets.Add(1) }

func (m *Metrics) IncrementQuizGenerated() { m.quiz.generated.Add(1) }

func (m *Metrics) IncrementQuizSubmit(correct bool) {
	m.quiz.submitted.Add(1)
	if correct {
		m.quiz.correct.Add(1)
	}
}

func (m *Metrics) IncrementWSConnection() { m.ws.connections.Add(1) }
func (m *Metrics) DecrementWSConnection() { m.ws.connections.Add(-1) }
func (m *Metrics) IncrementWSMessageIn()  { m.ws.in.Add(1) }
func (m *Metrics) IncrementWSMessageOut() { m.ws.out.Add(1) }

// TrackEndpoint counts a request against "METHOD route".
func (m *Metrics) TrackEndpoint(route, method string, statusCode int, latencyMs int64) {
	key := method + " " + route

	m.mu.RLock()
	e := m.endpoints[key]
	m.mu.RUnlock()

	if e == nil {
		m.mu.Lock()
		if e = m.endpoints[key]; e == nil {
			e = &endpoint{}
			m.endpoints[key] = e
		}
		m.mu.Unlock()
	}

	e.requests.Add(1)
	e.latency.Add(latencyMs)
	if statusCode >= 400 {
		e.errors.Add(1)
	}
}

// GetEndpointMetrics copies the per-route counters
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]EndpointMetrics, len(m.endpoints))
	for k, e := range m.endpoints {
		out[k] = EndpointMetrics{
			Requests:     e.requests.Load(),
			Errors:       e.errors.Load(),
			TotalLatency: e.latency.Load(),
		}
	}
	return out
}

// GetUptime returns the time since Init
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.started)
}

// EndpointMetricsSnapshot is one route in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot is a point-in-time copy of every counter
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Validations struct {
		Database   int64   `json:"database"`
		Cache      int64   `json:"cache"`
		Model      int64   `json:"model"`
		HitRatePct float64 `json:"hit_rate_pct"`
	} `json:"validations"`

	LLM struct {
		Calls        int64   `json:"calls"`
		Errors       int64   `json:"errors"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"llm"`

	Nodes struct {
		Created            int64 `json:"created"`
		DuplicatesRejected int64 `json:"duplicates_rejected"`
	} `json:"nodes"`

	Calendar struct {
		Implements        int64 `json:"implements"`
		Errors            int64 `json:"errors"`
		EventsCreated     int64 `json:"events_created"`
		SchedulesExported int64 `json:"schedules_exported"`
	} `json:"calendar"`

	Quiz struct {
		Generated int64 `json:"generated"`
		Submitted int64 `json:"submitted"`
		Correct   int64 `json:"correct"`
	} `json:"quiz"`

	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesIn  int64 `json:"messages_in"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	System struct {
		Goroutines   int     `json:"goroutines"`
		HeapAllocMB  uint64  `json:"heap_alloc_mb"`
		HeapInUseMB  uint64  `json:"heap_inuse_mb"`
		StackInUseMB uint64  `json:"stack_inuse_mb"`
		NumGC        uint32  `json:"num_gc"`
		RSSMB        uint64  `json:"rss_mb,omitempty"`
		HostMemPct   float64 `json:"host_mem_used_pct,omitempty"`
	} `json:"system"`

	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

const mb = 1024 * 1024

// Snapshot copies every counter and samples the runtime and host.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var s MetricsSnapshot

	s.UptimeSeconds = m.GetUptime().Seconds()
	s.StartTime = m.started.Format(time.RFC3339)

	total := m.requests.total.Load()
	s.Requests.Total = total
	s.Requests.Failed = m.requests.failed.Load()
	s.Requests.Successful = total - s.Requests.Failed
	s.Requests.AvgLatencyMs = ratio(m.requests.latency.Load(), total)

	v := &s.Validations
	v.Database, v.Cache, v.Model = m.validations.database.Load(), m.validations.cache.Load(), m.validations.model.Load()
	v.HitRatePct = ratio(v.Database+v.Cache, v.Database+v.Cache+v.Model) * 100

	s.LLM.Calls = m.llm.calls.Load()
	s.LLM.Errors = m.llm.errors.Load()
	s.LLM.AvgLatencyMs = ratio(m.llm.latency.Load(), s.LLM.Calls)

	s.Nodes.Created = m.nodes.created.Load()
	s.Nodes.DuplicatesRejected = m.nodes.duplicates.Load()

	s.Calendar.Implements = m.calendar.implements.Load()
	s.Calendar.Errors = m.calendar.errors.Load()
	s.Calendar.EventsCreated = m.calendar.events.Load()
	s.Calendar.SchedulesExported = m.calendar.spreadsheets.Load()

	s.Quiz.Generated = m.quiz.generated.Load()
	s.Quiz.Submitted = m.quiz.submitted.Load()
	s.Quiz.Correct = m.quiz.correct.Load()

	s.WebSocket.Connections = m.ws.connections.Load()
	s.WebSocket.MessagesIn = m.ws.in.Load()
	s.WebSocket.MessagesOut = m.ws.out.Load()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.System.Goroutines = runtime.NumGoroutine()
	s.System.HeapAllocMB = ms.HeapAlloc / mb
	s.System.HeapInUseMB = ms.HeapInuse / mb
	s.System.StackInUseMB = ms.StackInuse / mb
	s.System.NumGC = ms.NumGC
	if rss, err := processRSS(); err == nil {
		s.System.RSSMB = rss / mb
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.System.HostMemPct = vm.UsedPercent
	}

	if eps := m.GetEndpointMetrics(); len(eps) > 0 {
		s.Endpoints = make(map[string]EndpointMetricsSnapshot, len(eps))
		for k, e := range eps {
			s.Endpoints[k] = EndpointMetricsSnapshot{
				Requests:     e.Requests,
				Errors:       e.Errors,
				ErrorRate:    ratio(e.Errors, e.Requests) * 100,
				AvgLatencyMs: ratio(e.TotalLatency, e.Requests),
			}
		}
	}

	return s
}

func processRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
