package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// ServiceStatus represents the lifecycle state of a managed service.
type ServiceStatus string

const (
	StatusNotStarted ServiceStatus = "not_started"
	StatusRunning    ServiceStatus = "running"
	StatusStopped    ServiceStatus = "stopped"
	StatusFailed     ServiceStatus = "failed"
)

// ManagedService is a daemon component with a lifecycle.
type ManagedService interface {
	// Name returns the service name for logging and identification.
	Name() string

	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Health returns the current health of the service.
	Health() HealthCheck

	// Dependencies returns the names of services that must start first.
	Dependencies() []string
}

// Orchestrator starts services in dependency order and stops them in reverse.
type Orchestrator struct {
	mu       sync.Mutex
	services map[string]ManagedService
	status   map[string]ServiceStatus
	order    []string

	startTimeout time.Duration
	stopTimeout  time.Duration
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		services:     make(map[string]ManagedService),
		status:       make(map[string]ServiceStatus),
		startTimeout: 30 * time.Second,
		stopTimeout:  10 * time.Second,
	}
}

// Register adds a service. Names must be unique and non-empty.
func (o *Orchestrator) Register(svc ManagedService) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	name := svc.Name()
	if name == "" {
		return errors.ValidationError("service name cannot be empty").Build()
	}
	if _, exists := o.services[name]; exists {
		return errors.ValidationError(fmt.Sprintf("service %s already registered", name)).Build()
	}
	o.services[name] = svc
	o.status[name] = StatusNotStarted
	return nil
}

// StartAll starts every service in dependency order. On failure the
// services already started are stopped again.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, err := o.startOrder()
	if err != nil {
		return errors.InternalError("failed to calculate service start order").WithCause(err).Build()
	}
	o.order = order
	slog.Info("Starting services", slog.Any("order", order))

	for _, name := range order {
		startCtx, cancel := context.WithTimeout(ctx, o.startTimeout)
		err := o.services[name].Start(startCtx)
		cancel()
		if err != nil {
			o.status[name] = StatusFailed
			o.stopRunning(ctx)
			return errors.DaemonError(fmt.Sprintf("failed to start service %s", name)).WithCause(err).Build()
		}
		o.status[name] = StatusRunning
	}
	return nil
}

// StopAll stops running services in reverse start order.
func (o *Orchestrator) StopAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopRunning(ctx)
}

func (o *Orchestrator) stopRunning(ctx context.Context) error {
	var lastErr error
	for _, name := range slices.Backward(o.order) {
		if o.status[name] != StatusRunning {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, o.stopTimeout)
		err := o.services[name].Stop(stopCtx)
		cancel()
		if err != nil {
			o.status[name] = StatusFailed
			lastErr = err
			slog.Error("Error stopping service", "service", name, "error", err)
			continue
		}
		o.status[name] = StatusStopped
	}
	if lastErr != nil {
		return errors.InternalError("some services failed to stop gracefully").WithCause(lastErr).Build()
	}
	return nil
}

// Status returns the lifecycle state of a service.
func (o *Orchestrator) Status(name string) ServiceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status[name]
}

// Health collects health checks from every registered service, sorted by name.
func (o *Orchestrator) Health() []HealthCheck {
	o.mu.Lock()
	names := make([]string, 0, len(o.services))
	for name := range o.services {
		names = append(names, name)
	}
	o.mu.Unlock()
	slices.Sort(names)

	checks := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		checks = append(checks, o.services[name].Health())
	}
	return checks
}

// startOrder is a topological sort over Dependencies, visiting names sorted
// so the order is stable.
func (o *Orchestrator) startOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving service: %s", name)
		}
		if visited[name] {
			return nil
		}
		svc, ok := o.services[name]
		if !ok {
			return fmt.Errorf("service not found: %s", name)
		}
		visiting[name] = true
		for _, dep := range svc.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(o.services))
	for name := range o.services {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
