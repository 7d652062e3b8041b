package ports

import "context"

// ServiceState is the run state reported by the service control manager.
type ServiceState string

const (
	ServiceRunning      ServiceState = "running"
	ServiceStopped      ServiceState = "stopped"
	ServiceStartPending ServiceState = "start-pending"
	ServiceStopPending  ServiceState = "stop-pending"
	ServicePaused       ServiceState = "paused"
	ServiceUnknown      ServiceState = "unknown"
)

// ServiceStatus is a point-in-time view of a service's configuration and state.
type ServiceStatus struct {
	Name        string
	Installed   bool
	State       ServiceState
	OwnProcess  bool
	Interactive bool
	StartType   string
	Account     string
}

// ServiceController inspects and reconfigures a system service. Query on a
// service that does not exist returns Installed=false and no error.
type ServiceController interface {
	Query(ctx context.Context, name string) (ServiceStatus, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	SetOwnProcess(ctx context.Context, name string) error
	SetInteractive(ctx context.Context, name string, interactive bool) error
}
