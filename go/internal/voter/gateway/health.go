package gateway

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HealthStatus is the body of /health.
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	State       string    `json:"state"`
	LastUpdate  time.Time `json:"last_update"`
	Connections int       `json:"connections"`
	Errors      []string  `json:"errors,omitempty"`
}

// HealthCheckFunc reports why a dependency is unusable, or nil.
type HealthCheckFunc func() error

type healthChecks struct {
	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

func (h *healthChecks) add(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checks == nil {
		h.checks = make(map[string]HealthCheckFunc)
	}
	h.checks[name] = check
}

func (h *healthChecks) run() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var errs []string
	for name, check := range h.checks {
		if err := check(); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}
	sort.Strings(errs)
	return errs
}

// AddHealthCheck registers a dependency check reported by /health.
func (s *Service) AddHealthCheck(name string, check HealthCheckFunc) {
	s.health.add(name, check)
}

// Health checks the client and every registered dependency.
func (s *Service) Health() HealthStatus {
	view := s.app.View()
	status := HealthStatus{
		Healthy:     true,
		State:       view.State.String(),
		LastUpdate:  view.UpdatedAt,
		Connections: s.connectionManager.Stats().TotalConnections,
	}

	if view.Fatal {
		status.Errors = append(status.Errors, "voting client out of sync: "+view.Error)
	}
	status.Errors = append(status.Errors, s.health.run()...)
	status.Healthy = len(status.Errors) == 0
	return status
}

// HandleHealth handles GET /health
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.Health()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		log.Warn().Strs("errors", status.Errors).Msg("health check failed")
	}
	writeJSON(w, code, status)
}
