package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Pinger is anything that can report reachability, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	mu      sync.RWMutex
	checks  map[string]Pinger
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Pinger{}, timeout: 2 * time.Second}
}

// Register adds a named dependency check.
func (s *Service) Register(name string, p Pinger) {
	if p == nil {
		return
	}
	s.mu.Lock()
	s.checks[name] = p
	s.mu.Unlock()
}

// Status runs every registered check. A failed check marks the report not ok.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Pinger, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	report := Report{OK: true}
	if len(names) == 0 {
		return report
	}
	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := checks[name].PingContext(pingCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
