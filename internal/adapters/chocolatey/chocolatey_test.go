package chocolatey

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
	"github.com/alexisbeaulieu97/hostprep/internal/testutil"
)

func TestInstalled(t *testing.T) {
	tests := []struct {
		name        string
		stdout      string
		wantOK      bool
		wantVersion string
	}{
		{name: "installed", stdout: "python3|3.12.4\n", wantOK: true, wantVersion: "3.12.4"},
		{name: "case insensitive", stdout: "Python3|3.12.4", wantOK: true, wantVersion: "3.12.4"},
		{name: "absent", stdout: "", wantOK: false},
		{name: "other package", stdout: "python3-dev|1.0", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewRunner().Stdout("choco list --local-only --exact python3 --limit-output", tt.stdout)

			ok, version, err := New(runner).Installed(context.Background(), "python3")
			require.NoError(t, err)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestInstalled_MissingChoco(t *testing.T) {
	runner := testutil.NewRunner().On("choco list --local-only --exact git --limit-output",
		ports.CommandResult{ExitCode: -1}, fmt.Errorf("exec: %w", exec.ErrNotFound))

	ok, _, err := New(runner).Installed(context.Background(), "git")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInstall(t *testing.T) {
	runner := testutil.NewRunner()
	manager := New(runner)

	require.NoError(t, manager.Install(context.Background(), "git", ""))
	require.NoError(t, manager.Install(context.Background(), "python3", "3.12.4"))

	require.Equal(t, []string{
		"choco install git -y --no-progress",
		"choco list --local-only --exact python3 --limit-output",
		"choco install python3 -y --no-progress --version=3.12.4",
	}, runner.CommandLines())
}

func TestInstall_ChangesInstalledVersion(t *testing.T) {
	tests := []struct {
		name      string
		installed string
	}{
		{name: "newer installed", installed: "python3|3.13.0"},
		{name: "older installed", installed: "python3|3.11.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewRunner().Stdout("choco list --local-only --exact python3 --limit-output", tt.installed)

			require.NoError(t, New(runner).Install(context.Background(), "python3", "3.12.4"))
			require.Equal(t, []string{
				"choco list --local-only --exact python3 --limit-output",
				"choco upgrade python3 -y --no-progress --version=3.12.4 --allow-downgrade",
			}, runner.CommandLines())
		})
	}
}

func TestInstall_SameVersionUsesInstall(t *testing.T) {
	runner := testutil.NewRunner().Stdout("choco list --local-only --exact python3 --limit-output", "python3|3.12.4")

	require.NoError(t, New(runner).Install(context.Background(), "python3", "3.12.4"))
	require.Contains(t, runner.CommandLines(), "choco install python3 -y --no-progress --version=3.12.4")
}

func TestInstall_Failure(t *testing.T) {
	runner := testutil.NewRunner().On("choco install nssm -y --no-progress",
		ports.CommandResult{ExitCode: 1603, Stdout: "The install of nssm was NOT successful."}, nil)

	err := New(runner).Install(context.Background(), "nssm", "")
	require.ErrorContains(t, err, "exited with code 1603")
}

func TestRejectsInvalidNames(t *testing.T) {
	runner := testutil.NewRunner()
	require.Error(t, New(runner).Install(context.Background(), "git; rm -rf /", ""))
	_, _, err := New(runner).Installed(context.Background(), "")
	require.Error(t, err)
	require.Empty(t, runner.Calls())
}
