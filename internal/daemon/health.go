package daemon

import (
	"time"
)

// HealthStatus represents the health of the daemon or one of its parts.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked time.Time    `json:"last_checked"`
}

// PassStatus describes the most recent materialization pass.
type PassStatus struct {
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
	Users        int       `json:"users"`
	Failed       int       `json:"failed"`
	Materialized int       `json:"materialized"`
	Error        string    `json:"error,omitempty"`
}

// HealthResponse represents the complete health check response.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	NextPass  *time.Time    `json:"next_pass,omitempty"`
	LastPass  *PassStatus   `json:"last_pass,omitempty"`
	Checks    []HealthCheck `json:"checks"`
}

// aggregate folds individual checks into an overall status: any unhealthy
// check degrades the daemon, and a failed state store makes it unhealthy.
func aggregate(checks []HealthCheck) HealthStatus {
	overall := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy && c.Name == storeCheckName:
			return HealthStatusUnhealthy
		case c.Status != HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}
	return overall
}

const storeCheckName = "state_store"
