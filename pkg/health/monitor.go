package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
	StatusDegraded
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDegraded:
		return "degraded"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult represents the result of one dependency check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Critical  bool          `json:"critical"`
	Latency   time.Duration `json:"latencyNs"`
	LastCheck time.Time     `json:"lastCheck"`
	Message   string        `json:"message,omitempty"`
}

// Checker tests one dependency.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// PingFunc is satisfied by (*sql.DB).PingContext and the redis client's Ping.
type PingFunc func(ctx context.Context) error

type registration struct {
	checker  Checker
	critical bool
	enabled  bool
}

// Report is the aggregate outcome of one CheckAll run.
type Report struct {
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Checks    []*CheckResult `json:"checks"`
}

// Monitor runs the registered checks on demand.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]registration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewMonitor(timeout time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		checkers: make(map[string]registration),
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Register adds a check. A failing critical check makes the whole report
// unhealthy, a failing optional one only degrades it.
func (m *Monitor) Register(name string, checker Checker, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers[name] = registration{checker: checker, critical: critical, enabled: checker != nil}
	m.logger.Info("Registered health checker",
		zap.String("name", name),
		zap.Bool("critical", critical),
		zap.Bool("enabled", checker != nil),
	)
}

// RegisterPing is Register for a ping-style function. A nil ping registers
// the dependency as disabled.
func (m *Monitor) RegisterPing(name string, ping PingFunc, critical bool) {
	if ping == nil {
		m.Register(name, nil, critical)
		return
	}
	m.Register(name, CheckFunc(ping), critical)
}

// CheckAll runs every registered check concurrently and returns the report.
func (m *Monitor) CheckAll(ctx context.Context) *Report {
	m.mu.RLock()
	checkers := make(map[string]registration, len(m.checkers))
	for name, reg := range m.checkers {
		checkers[name] = reg
	}
	m.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make([]*CheckResult, 0, len(checkers))
	)
	for name, reg := range checkers {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()
			result := m.check(ctx, name, reg)
			resMu.Lock()
			results = append(results, result)
			resMu.Unlock()
		}(name, reg)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	report := &Report{Status: StatusHealthy, Timestamp: m.now(), Checks: results}
	for _, r := range results {
		switch {
		case r.Status == StatusUnhealthy && r.Critical:
			report.Status = StatusUnhealthy
		case r.Status == StatusUnhealthy && report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}

	return report
}

func (m *Monitor) check(ctx context.Context, name string, reg registration) *CheckResult {
	start := m.now()
	result := &CheckResult{Name: name, Critical: reg.critical, LastCheck: start}

	if !reg.enabled {
		result.Status = StatusDisabled
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := reg.checker.Check(ctx)
	result.Latency = m.now().Sub(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		m.logger.Warn("Health check failed",
			zap.String("name", name),
			zap.Duration("latency", result.Latency),
			zap.Error(err),
		)
		return result
	}

	result.Status = StatusHealthy
	return result
}
