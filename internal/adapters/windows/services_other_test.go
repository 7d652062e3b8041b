//go:build !windows

package windows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

func TestStubsAreUnsupported(t *testing.T) {
	ctx := context.Background()

	_, err := NewServices().Query(ctx, "Spooler")
	require.True(t, errors.Is(err, errors.ErrUnsupported))
	require.ErrorIs(t, NewServices().SetInteractive(ctx, "Spooler", true), errors.ErrUnsupported)

	_, _, err = NewRegistry().ReadDWORD(ctx, ports.PolicyValue{Hive: ports.HiveLocalMachine, Path: `SOFTWARE\x`, Name: "y"})
	require.ErrorIs(t, err, errors.ErrUnsupported)
}
