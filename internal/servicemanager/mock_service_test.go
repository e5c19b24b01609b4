package servicemanager

import (
	"context"
	"sync"

	"github.com/runziggurat/zcash/internal/zerrors"
)

// mockService is a Service used across service_manager_test.go to observe
// lifecycle calls without standing up a real crawler component.
type mockService struct {
	name string

	mu               sync.Mutex
	initCalled       bool
	startCalled      bool
	stopCalled       bool
	failOn           string
	healthStatus     int
	healthErr        error
	healthStatusHeld bool
	stopErr          error
}

// statusMockService adds a StatusReporter implementation on top of
// mockService, kept as a distinct type so tests can register plain
// mockServices (no StatusReporter) alongside these.
type statusMockService struct {
	*mockService
	status string
}

// NewStatusMockService returns a Service that also reports status via
// StatusReporter.
func NewStatusMockService(name, status string) *statusMockService {
	return &statusMockService{mockService: NewMockService(name), status: status}
}

func (m *statusMockService) Status() string {
	return m.status
}

// NewMockService returns a Service that succeeds at every lifecycle stage.
func NewMockService(name string) *mockService {
	return &mockService{name: name, healthStatus: 200}
}

// NewFailingMockService returns a Service whose named stage ("init", "start",
// or "stop") returns an error.
func NewFailingMockService(name, failOn string) *mockService {
	return &mockService{name: name, failOn: failOn, healthStatus: 200}
}

// SetStopBehavior overrides the error Stop returns.
func (m *mockService) SetStopBehavior(_ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopErr = err
}

// SetHealthBehavior overrides what Health reports.
func (m *mockService) SetHealthBehavior(status int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = status
	m.healthErr = err
	m.healthStatusHeld = true
}

// WasCalled reports which lifecycle stages have run so far.
func (m *mockService) WasCalled() (init, start, stop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalled, m.startCalled, m.stopCalled
}

func (m *mockService) Init(_ context.Context) error {
	m.mu.Lock()
	m.initCalled = true
	m.mu.Unlock()

	if m.failOn == "init" {
		return zerrors.NewServiceError("%s: init failed", m.name)
	}
	return nil
}

func (m *mockService) Start(ctx context.Context, readyCh chan struct{}) error {
	m.mu.Lock()
	m.startCalled = true
	fail := m.failOn == "start"
	m.mu.Unlock()

	if fail {
		return zerrors.NewServiceError("mock service failure: %s", m.name)
	}

	close(readyCh)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) Stop(_ context.Context) error {
	m.mu.Lock()
	m.stopCalled = true
	fail := m.failOn == "stop"
	stopErr := m.stopErr
	m.mu.Unlock()

	if stopErr != nil {
		return stopErr
	}
	if fail {
		return zerrors.NewServiceError("%s: stop failed", m.name)
	}
	return nil
}

func (m *mockService) Health(_ context.Context, _ bool) (int, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthStatus, m.name, m.healthErr
}
