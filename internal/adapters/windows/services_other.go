//go:build !windows

package windows

import (
	"context"
	"errors"
	"time"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Services is unsupported outside Windows; every call returns
// errors.ErrUnsupported.
type Services struct {
	PollInterval time.Duration
}

var _ ports.ServiceController = (*Services)(nil)

// NewServices returns a controller that fails on this platform.
func NewServices() *Services { return &Services{} }

func (s *Services) Query(context.Context, string) (ports.ServiceStatus, error) {
	return ports.ServiceStatus{}, errors.ErrUnsupported
}

func (s *Services) Start(context.Context, string) error { return errors.ErrUnsupported }

func (s *Services) Stop(context.Context, string) error { return errors.ErrUnsupported }

func (s *Services) SetOwnProcess(context.Context, string) error { return errors.ErrUnsupported }

func (s *Services) SetInteractive(context.Context, string, bool) error {
	return errors.ErrUnsupported
}
