package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

func validProvision() *Provision {
	return &Provision{
		Packages: []Package{{Name: "git"}, {Name: "python3", Version: "3.12.4"}},
		Repository: Repository{
			URL:         "https://github.com/example/lab-agent.git",
			Destination: `C:\lab-agent`,
		},
		Dependencies: Dependencies{Requirements: "requirements.txt"},
		Services: []Service{
			{Name: "LabAgentService", Executable: `C:\Python312\python.exe`},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "bad version", mutate: func(c *Config) { c.Version = "beta" }, field: "version"},
		{name: "negative timeout", mutate: func(c *Config) { c.Settings.StepTimeout = -1 }, field: "settings.step_timeout"},
		{name: "service with slash", mutate: func(c *Config) { c.Diagnose.Service = `bad\name` }, field: "diagnose.service"},
		{name: "missing capture path", mutate: func(c *Config) { c.Diagnose.CapturePath = "" }, field: "diagnose.capture_path"},
		{name: "no services", mutate: func(c *Config) { c.Provision.Services = nil }, field: "provision.services"},
		{name: "bad package", mutate: func(c *Config) { c.Provision.Packages[1].Name = "py thon" }, field: "provision.packages[1].name"},
		{name: "bad git url", mutate: func(c *Config) { c.Provision.Repository.URL = "not a url" }, field: "provision.repository.url"},
		{name: "missing requirements", mutate: func(c *Config) { c.Provision.Dependencies.Requirements = "" }, field: "provision.dependencies.requirements"},
		{name: "missing executable", mutate: func(c *Config) { c.Provision.Services[0].Executable = "" }, field: "provision.services[0].executable"},
		{
			name: "duplicate service",
			mutate: func(c *Config) {
				c.Provision.Services = append(c.Provision.Services, Service{Name: "labagentservice", Executable: "x.exe"})
			},
			field: "provision.services[1].name",
		},
		{
			name:   "duplicate package",
			mutate: func(c *Config) { c.Provision.Packages = append(c.Provision.Packages, Package{Name: "Git"}) },
			field:  "provision.packages[2].name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Provision = validProvision()
			tc.mutate(&cfg)

			err := Validate(&cfg)
			var cfgErr *hosterrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestValidate_AcceptsDefaultsAndValidProvision(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(&cfg))

	cfg.Provision = validProvision()
	require.NoError(t, Validate(&cfg))

	require.Error(t, Validate(nil))
}

func TestIsGitURL(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://github.com/example/repo.git",
		"ssh://git@example.com/repo.git",
		"git@github.com:example/repo.git",
		"file:///srv/git/repo.git",
		"/srv/git/repo.git",
		"./repo",
		`C:\repos\lab-agent`,
		`\\fileserver\git\lab-agent`,
	}
	for _, raw := range valid {
		require.True(t, isGitURL(raw), raw)
	}

	invalid := []string{"", "   ", "https://", "repo", "ftp://example.com/repo", "has space/repo"}
	for _, raw := range invalid {
		require.False(t, isGitURL(raw), raw)
	}
}

func TestSettingsTimeout(t *testing.T) {
	t.Parallel()

	require.Equal(t, "5m0s", Default().Settings.Timeout().String())
	require.Zero(t, Settings{}.Timeout())
}
