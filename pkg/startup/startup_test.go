package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	failures  int
	events    *[]string
}

func (d *fakeDependency) GetName() string     { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(ctx context.Context) error {
	if d.failures > 0 {
		d.failures--
		return errors.New(d.name + " unavailable")
	}
	*d.events = append(*d.events, "start "+d.name)
	return nil
}

func (d *fakeDependency) Stop(ctx context.Context) error {
	*d.events = append(*d.events, "stop "+d.name)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func TestStartResolvesDependsOn(t *testing.T) {
	var events []string
	server := &fakeDependency{name: "server", dependsOn: []string{"database", "kafka"}, events: &events}
	db := &fakeDependency{name: "database", events: &events}
	kafka := &fakeDependency{name: "kafka", events: &events}

	// Registered out of order on purpose; DependsOn drives the start order
	s := NewStartup(testLogger(), 1)
	s.AddDependency(server)
	s.AddDependency(db)
	s.AddDependency(kafka)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start kafka", "start server"}, events)
}

func TestStopReversesStartOrder(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", events: &events}
	server := &fakeDependency{name: "server", dependsOn: []string{"database"}, events: &events}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(db)
	s.AddDependency(server)

	require.NoError(t, s.Start(context.Background()))
	events = events[:0]

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop server", "stop database"}, events)
}

func TestStartRetriesWithoutRestartingStartedDeps(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", events: &events}
	kafka := &fakeDependency{name: "kafka", failures: 1, events: &events}

	s := NewStartup(testLogger(), 3)
	s.AddDependency(db)
	s.AddDependency(kafka)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start kafka"}, events)
}

func TestStartFailsAfterMaxAttempts(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", failures: 10, events: &events}

	s := NewStartup(testLogger(), 2)
	s.AddDependency(db)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestStartUnregisteredDependency(t *testing.T) {
	var events []string
	server := &fakeDependency{name: "server", dependsOn: []string{"database"}, events: &events}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(server)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered 'database'")
}

func TestStartDetectsCycle(t *testing.T) {
	var events []string
	a := &fakeDependency{name: "a", dependsOn: []string{"b"}, events: &events}
	b := &fakeDependency{name: "b", dependsOn: []string{"a"}, events: &events}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(a)
	s.AddDependency(b)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestStopSkipsNeverStarted(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", events: &events}
	kafka := &fakeDependency{name: "kafka", failures: 10, events: &events}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(db)
	s.AddDependency(kafka)

	require.Error(t, s.Start(context.Background()))
	events = events[:0]

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop database"}, events)
}
