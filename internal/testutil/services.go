package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Services is an in-memory ports.ServiceController.
type Services struct {
	mu       sync.Mutex
	services map[string]ports.ServiceStatus
	calls    []string

	// QueryErr, when set, fails every Query.
	QueryErr error
	// Errs fails the named operation ("start", "stop", "own-process", "interactive").
	Errs map[string]error
}

// NewServices returns a controller that knows the given services.
func NewServices(services ...ports.ServiceStatus) *Services {
	s := &Services{services: make(map[string]ports.ServiceStatus), Errs: make(map[string]error)}
	for _, svc := range services {
		svc.Installed = true
		s.services[svc.Name] = svc
	}
	return s
}

// Status returns the current in-memory status.
func (s *Services) Status(name string) ports.ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services[name]
}

// Calls lists mutating operations as "op:name".
func (s *Services) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Services) Query(_ context.Context, name string) (ports.ServiceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.QueryErr != nil {
		return ports.ServiceStatus{}, s.QueryErr
	}
	status, ok := s.services[name]
	if !ok {
		return ports.ServiceStatus{Name: name}, nil
	}
	return status, nil
}

func (s *Services) Start(_ context.Context, name string) error {
	return s.mutate("start", name, func(st *ports.ServiceStatus) { st.State = ports.ServiceRunning })
}

func (s *Services) Stop(_ context.Context, name string) error {
	return s.mutate("stop", name, func(st *ports.ServiceStatus) { st.State = ports.ServiceStopped })
}

func (s *Services) SetOwnProcess(_ context.Context, name string) error {
	return s.mutate("own-process", name, func(st *ports.ServiceStatus) { st.OwnProcess = true })
}

func (s *Services) SetInteractive(_ context.Context, name string, interactive bool) error {
	return s.mutate("interactive", name, func(st *ports.ServiceStatus) { st.Interactive = interactive })
}

func (s *Services) mutate(op, name string, fn func(*ports.ServiceStatus)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+":"+name)
	if err := s.Errs[op]; err != nil {
		return err
	}
	status, ok := s.services[name]
	if !ok {
		return fmt.Errorf("service %s does not exist", name)
	}
	fn(&status)
	s.services[name] = status
	return nil
}
