//go:build windows

package windows

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Registry reads and writes DWORD policy values.
type Registry struct{}

var _ ports.PolicyStore = Registry{}

// NewRegistry returns a registry-backed policy store.
func NewRegistry() Registry { return Registry{} }

func (Registry) ReadDWORD(_ context.Context, value ports.PolicyValue) (uint32, bool, error) {
	root, err := hive(value.Hive)
	if err != nil {
		return 0, false, err
	}

	key, err := registry.OpenKey(root, value.Path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("open %s: %w", value, err)
	}
	defer key.Close()

	data, valueType, err := key.GetIntegerValue(value.Name)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", value, err)
	}
	if valueType != registry.DWORD {
		return 0, false, fmt.Errorf("read %s: value has type %d, expected DWORD", value, valueType)
	}
	return uint32(data), true, nil
}

func (Registry) WriteDWORD(_ context.Context, value ports.PolicyValue, data uint32) error {
	root, err := hive(value.Hive)
	if err != nil {
		return err
	}

	key, _, err := registry.CreateKey(root, value.Path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open %s for writing: %w", value, err)
	}
	defer key.Close()

	if err := key.SetDWordValue(value.Name, data); err != nil {
		return fmt.Errorf("write %s: %w", value, err)
	}
	return nil
}

func hive(name string) (registry.Key, error) {
	switch name {
	case ports.HiveLocalMachine:
		return registry.LOCAL_MACHINE, nil
	case ports.HiveCurrentUser:
		return registry.CURRENT_USER, nil
	default:
		return 0, fmt.Errorf("unsupported registry hive %q", name)
	}
}
