package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

const provisionYAML = `version: "1.0"
name: lab-machine
settings:
  halt_on_required_failure: false
  step_timeout: 600
provision:
  packages:
    - name: python3
      version: 3.12.4
    - name: git
    - name: nssm
  repository:
    url: https://github.com/example/lab-agent.git
    destination: C:\lab-agent
    branch: main
  dependencies:
    interpreter: C:\Python312\python.exe
    requirements: requirements.txt
  services:
    - name: LabAgentService
      executable: C:\Python312\python.exe
      arguments: C:\lab-agent\main.py
      workdir: C:\lab-agent
      stdout_log: C:\lab-agent\logs\service.log
      stderr_log: C:\lab-agent\logs\service-error.log
    - name: LabAgentUpdater
      executable: C:\Python312\python.exe
      arguments: C:\lab-agent\update-system\updater.py
`

const provisionTOML = `version = "1.0"
name = "lab-machine"

[settings]
halt_on_required_failure = true

[diagnose]
service = "CaptureAgent"

[provision.repository]
url = "git@github.com:example/lab-agent.git"
destination = 'C:\lab-agent'

[provision.dependencies]
requirements = 'C:\lab-agent\requirements.txt'

[[provision.services]]
name = "LabAgentService"
executable = 'C:\Python312\python.exe'

[provision.uac]
leave_enabled = true
`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeFile(t, "plan.yaml", provisionYAML))
	require.NoError(t, err)

	require.Equal(t, "lab-machine", cfg.Name)
	require.False(t, cfg.Settings.HaltOnRequiredFailure)
	require.Equal(t, 600, cfg.Settings.StepTimeout)
	require.Equal(t, "ScreenshotService", cfg.Diagnose.Service, "unset sections keep defaults")

	require.NotNil(t, cfg.Provision)
	require.Len(t, cfg.Provision.Packages, 3)
	require.Equal(t, "3.12.4", cfg.Provision.Packages[0].Version)
	require.Equal(t, `C:\lab-agent`, cfg.Provision.Repository.Destination)
	require.Len(t, cfg.Provision.Services, 2)
	require.Equal(t, "LabAgentUpdater", cfg.Provision.Services[1].Name)
	require.False(t, cfg.Provision.UAC.LeaveEnabled)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeFile(t, "plan.toml", provisionTOML))
	require.NoError(t, err)

	require.True(t, cfg.Settings.HaltOnRequiredFailure)
	require.Equal(t, 300, cfg.Settings.StepTimeout)
	require.Equal(t, "CaptureAgent", cfg.Diagnose.Service)
	require.Equal(t, DefaultCapturePath, cfg.Diagnose.CapturePath)
	require.Equal(t, "git@github.com:example/lab-agent.git", cfg.Provision.Repository.URL)
	require.True(t, cfg.Provision.UAC.LeaveEnabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		file     string
		contents string
		line     int
	}{
		{name: "malformed yaml", file: "bad.yaml", contents: "version: \"1.0\"\nsettings: [1, 2\n", line: -1},
		{name: "unknown yaml key", file: "bad.yml", contents: "version: \"1.0\"\nsetings:\n  dry_run: true\n", line: 2},
		{name: "malformed toml", file: "bad.toml", contents: "version = \"1.0\"\n[settings\n", line: 2},
		{name: "unknown toml key", file: "bad.toml", contents: "version = \"1.0\"\ncolour = \"blue\"\n", line: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeFile(t, tc.file, tc.contents))
			var parseErr *hosterrors.ParseError
			require.ErrorAs(t, err, &parseErr)
			if tc.line < 0 {
				require.Positive(t, parseErr.Line)
				return
			}
			require.Equal(t, tc.line, parseErr.Line)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var parseErr *hosterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Zero(t, parseErr.Line)
}

func TestParse_EmptyDocumentUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)
}

func TestMarshalRoundTripsThroughParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"plan.yaml", "plan.toml"} {
		original, err := Parse("plan.yaml", []byte(provisionYAML))
		require.NoError(t, err)

		data, err := Marshal(name, original)
		require.NoError(t, err)

		decoded, err := Parse(name, data)
		require.NoError(t, err, name)
		require.Equal(t, original, decoded, name)
	}
}

func TestExamplePlansLoad(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("..", "..", "examples", "*"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)
			require.NotEmpty(t, cfg.Name)
			if cfg.Provision != nil {
				require.Len(t, cfg.Provision.Services, 2)
			}
		})
	}
}
