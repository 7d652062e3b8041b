//go:build windows

package windows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// localSystem is the only account allowed to interact with the desktop.
const localSystem = "LocalSystem"

// Services controls services through the Service Control Manager.
type Services struct {
	// PollInterval is how often Start and Stop re-query the service while
	// waiting for it to settle.
	PollInterval time.Duration
}

var _ ports.ServiceController = (*Services)(nil)

// NewServices returns an SCM-backed controller.
func NewServices() *Services {
	return &Services{PollInterval: 250 * time.Millisecond}
}

func (s *Services) Query(_ context.Context, name string) (ports.ServiceStatus, error) {
	status := ports.ServiceStatus{Name: name}

	err := withService(name, func(service *mgr.Service) error {
		current, err := service.Query()
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		cfg, err := service.Config()
		if err != nil {
			return fmt.Errorf("read config of %s: %w", name, err)
		}

		status.Installed = true
		status.State = stateName(current.State)
		status.OwnProcess = cfg.ServiceType&windows.SERVICE_WIN32_OWN_PROCESS != 0
		status.Interactive = cfg.ServiceType&windows.SERVICE_INTERACTIVE_PROCESS != 0
		status.StartType = startTypeName(cfg.StartType, cfg.DelayedAutoStart)
		status.Account = cfg.ServiceStartName
		return nil
	})
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return status, nil
	}
	return status, err
}

func (s *Services) Start(ctx context.Context, name string) error {
	return withService(name, func(service *mgr.Service) error {
		if err := service.Start(); err != nil && !errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return fmt.Errorf("start %s: %w", name, err)
		}
		return s.waitFor(ctx, service, svc.Running)
	})
}

func (s *Services) Stop(ctx context.Context, name string) error {
	return withService(name, func(service *mgr.Service) error {
		if _, err := service.Control(svc.Stop); err != nil && !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return fmt.Errorf("stop %s: %w", name, err)
		}
		return s.waitFor(ctx, service, svc.Stopped)
	})
}

func (s *Services) SetOwnProcess(_ context.Context, name string) error {
	return updateConfig(name, func(cfg *mgr.Config) {
		interactive := cfg.ServiceType & windows.SERVICE_INTERACTIVE_PROCESS
		cfg.ServiceType = windows.SERVICE_WIN32_OWN_PROCESS | interactive
	})
}

func (s *Services) SetInteractive(_ context.Context, name string, interactive bool) error {
	return updateConfig(name, func(cfg *mgr.Config) {
		if interactive {
			cfg.ServiceType |= windows.SERVICE_INTERACTIVE_PROCESS
			cfg.ServiceStartName = localSystem
			return
		}
		cfg.ServiceType &^= windows.SERVICE_INTERACTIVE_PROCESS
	})
}

func (s *Services) waitFor(ctx context.Context, service *mgr.Service, want svc.State) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		current, err := service.Query()
		if err != nil {
			return fmt.Errorf("query %s: %w", service.Name, err)
		}
		if current.State == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to become %s: %w", service.Name, stateName(want), ctx.Err())
		case <-ticker.C:
		}
	}
}

func updateConfig(name string, mutate func(*mgr.Config)) error {
	return withService(name, func(service *mgr.Service) error {
		cfg, err := service.Config()
		if err != nil {
			return fmt.Errorf("read config of %s: %w", name, err)
		}
		mutate(&cfg)
		if err := service.UpdateConfig(cfg); err != nil {
			return fmt.Errorf("update config of %s: %w", name, err)
		}
		return nil
	})
}

func withService(name string, fn func(*mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	service, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer service.Close()

	return fn(service)
}

func stateName(state svc.State) ports.ServiceState {
	switch state {
	case svc.Running:
		return ports.ServiceRunning
	case svc.Stopped:
		return ports.ServiceStopped
	case svc.StartPending, svc.ContinuePending:
		return ports.ServiceStartPending
	case svc.StopPending, svc.PausePending:
		return ports.ServiceStopPending
	case svc.Paused:
		return ports.ServicePaused
	default:
		return ports.ServiceUnknown
	}
}

func startTypeName(startType uint32, delayed bool) string {
	switch startType {
	case mgr.StartAutomatic:
		if delayed {
			return "delayed-auto"
		}
		return "auto"
	case mgr.StartManual:
		return "manual"
	case mgr.StartDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("type-%d", startType)
	}
}
