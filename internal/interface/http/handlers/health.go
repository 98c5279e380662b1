package handlers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// HealthChecker reports aggregate service health for the probe endpoints.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	AddCheck(name string, check Check)
}

// Check probes one dependency. A nil return means healthy.
type Check func(ctx context.Context) error

// HealthStatus is the aggregate result served on /health and /ready.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`

	Healthy bool   `json:"-"`
	Ready   bool   `json:"-"`
	Message string `json:"-"`
}

// CheckResult is the outcome of a single dependency probe.
type CheckResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// checkTimeout bounds each dependency probe so one hung dependency cannot
// stall the whole health response past the probe's own deadline.
const checkTimeout = 5 * time.Second

// CompositeHealthChecker runs all registered checks in parallel. The service
// is ready only when every dependency answers; a single failure flips both
// readiness and health.
type CompositeHealthChecker struct {
	mu      sync.RWMutex
	version string
	checks  map[string]Check
}

// NewCompositeHealthChecker creates a checker with no registered checks.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		version: version,
		checks:  make(map[string]Check),
	}
}

// AddCheck registers a named dependency probe.
func (c *CompositeHealthChecker) AddCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every registered probe and aggregates the results.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Version:   c.version,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(checks)),
		Healthy:   true,
		Ready:     true,
	}
	if len(checks) == 0 {
		return status
	}

	type outcome struct {
		name   string
		result CheckResult
		failed bool
	}

	results := make(chan outcome, len(checks))
	for name, check := range checks {
		go func(name string, check Check) {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := check(checkCtx)
			result := CheckResult{
				Status:   "up",
				Duration: time.Since(start).String(),
			}
			if err != nil {
				result.Status = "down"
				result.Error = err.Error()
			}
			results <- outcome{name: name, result: result, failed: err != nil}
		}(name, check)
	}

	var failedNames []string
	for range checks {
		out := <-results
		status.Checks[out.name] = out.result
		if out.failed {
			failedNames = append(failedNames, out.name)
		}
	}

	if len(failedNames) > 0 {
		status.Status = "unhealthy"
		status.Healthy = false
		status.Ready = false
		status.Message = "failed checks: " + strings.Join(failedNames, ", ")
	}
	return status
}

// Pinger is the slice of the database and cache connections the probes need.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the Postgres pool.
func NewDatabaseCheck(db Pinger) Check {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck probes the Redis connection.
func NewCacheCheck(cache Pinger) Check {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}
