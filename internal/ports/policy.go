package ports

import (
	"context"
	"fmt"
)

// Registry hives supported by PolicyStore implementations.
const (
	HiveLocalMachine = "HKLM"
	HiveCurrentUser  = "HKCU"
)

// PolicyValue addresses a single DWORD registry value.
type PolicyValue struct {
	Hive string
	Path string
	Name string
}

func (v PolicyValue) String() string {
	return fmt.Sprintf(`%s\%s\%s`, v.Hive, v.Path, v.Name)
}

// PolicyStore reads and writes machine policy values. ReadDWORD reports
// found=false when the key or value does not exist.
type PolicyStore interface {
	ReadDWORD(ctx context.Context, value PolicyValue) (data uint32, found bool, err error)
	WriteDWORD(ctx context.Context, value PolicyValue, data uint32) error
}
