// Package startup brings a service's dependencies up in declared order,
// retrying the whole sequence with fibonacci backoff until it succeeds or the
// attempt budget runs out.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable unit (database, producer, HTTP server).
// DependsOn names dependencies that must be started first.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarting
	statusStarted
	statusStopped
	statusFailed
)

// Startup starts dependencies in registration order, resolving DependsOn
// edges first, and stops them in reverse registration order.
type Startup struct {
	logger      ectologger.Logger
	order       []Dependency
	started     []Dependency
	byName      map[string]Dependency
	statuses    map[string]status
	maxAttempts int
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	return &Startup{
		logger:      logger,
		byName:      make(map[string]Dependency),
		statuses:    make(map[string]status),
		maxAttempts: maxAttempts,
	}
}

func (s *Startup) AddDependency(dependency Dependency) {
	s.order = append(s.order, dependency)
	s.byName[dependency.GetName()] = dependency
}

// Start attempts to bring every dependency up. On failure the sequence is
// retried from the first unstarted dependency; already-started ones are not
// restarted.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	wait, next := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, dependency := range s.order {
			if err := s.startDependency(ctx, dependency); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying in %d seconds (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}
		wait, next = next, wait+next
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency) error {
	name := dependency.GetName()
	switch s.statuses[name] {
	case statusStarted:
		return nil
	case statusStarting:
		return fmt.Errorf("dependency cycle involving '%s'", name)
	}

	s.statuses[name] = statusStarting
	for _, upstream := range dependency.DependsOn() {
		dep, ok := s.byName[upstream]
		if !ok {
			s.statuses[name] = statusFailed
			return fmt.Errorf("dependency '%s' depends on unregistered '%s'", name, upstream)
		}
		if err := s.startDependency(ctx, dep); err != nil {
			s.statuses[name] = statusFailed
			return err
		}
	}

	s.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = statusFailed
		s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = statusStarted
	s.started = append(s.started, dependency)
	return nil
}

// Stop stops dependencies in reverse start order, so the HTTP server drains
// before the database goes away.
func (s *Startup) Stop(ctx context.Context) error {
	for i := len(s.started) - 1; i >= 0; i-- {
		dependency := s.started[i]
		name := dependency.GetName()
		if s.statuses[name] != statusStarted {
			continue
		}

		s.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := dependency.Stop(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			return err
		}
		s.statuses[name] = statusStopped
	}
	return nil
}
