//go:build !windows

package windows

import (
	"context"
	"errors"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Registry is unsupported outside Windows.
type Registry struct{}

var _ ports.PolicyStore = Registry{}

// NewRegistry returns a store that fails on this platform.
func NewRegistry() Registry { return Registry{} }

func (Registry) ReadDWORD(context.Context, ports.PolicyValue) (uint32, bool, error) {
	return 0, false, errors.ErrUnsupported
}

func (Registry) WriteDWORD(context.Context, ports.PolicyValue, uint32) error {
	return errors.ErrUnsupported
}
