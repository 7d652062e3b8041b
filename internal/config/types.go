package config

import "time"

// DefaultCapturePath is where the diagnosis writes its test screenshot.
const DefaultCapturePath = `C:\ProgramData\hostprep\capture-test.png`

// Config represents a hostprep plan document.
type Config struct {
	Version   string     `yaml:"version" toml:"version" validate:"required,semver"`
	Name      string     `yaml:"name,omitempty" toml:"name,omitempty" validate:"omitempty,max=100"`
	Settings  Settings   `yaml:"settings,omitempty" toml:"settings,omitempty"`
	Diagnose  Diagnose   `yaml:"diagnose,omitempty" toml:"diagnose,omitempty"`
	Provision *Provision `yaml:"provision,omitempty" toml:"provision,omitempty" validate:"omitempty"`
}

// Settings holds run-wide execution parameters.
type Settings struct {
	HaltOnRequiredFailure bool `yaml:"halt_on_required_failure" toml:"halt_on_required_failure"`
	// StepTimeout bounds each probe, apply, and verify call, in seconds. Zero disables it.
	StepTimeout int  `yaml:"step_timeout,omitempty" toml:"step_timeout,omitempty" validate:"min=0,max=3600"`
	DryRun      bool `yaml:"dry_run,omitempty" toml:"dry_run,omitempty"`
	Verbose     bool `yaml:"verbose,omitempty" toml:"verbose,omitempty"`
	// LogFile receives a JSON copy of the run log when set.
	LogFile string `yaml:"log_file,omitempty" toml:"log_file,omitempty"`
}

// Timeout returns StepTimeout as a duration.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.StepTimeout) * time.Second
}

// Diagnose configures the screenshot service diagnosis.
type Diagnose struct {
	Service     string `yaml:"service" toml:"service" validate:"required,service_name"`
	CapturePath string `yaml:"capture_path,omitempty" toml:"capture_path,omitempty" validate:"required"`
}

// Provision declares the desired state of a lab machine.
type Provision struct {
	Packages     []Package    `yaml:"packages,omitempty" toml:"packages,omitempty" validate:"omitempty,dive"`
	Repository   Repository   `yaml:"repository" toml:"repository"`
	Dependencies Dependencies `yaml:"dependencies" toml:"dependencies"`
	Services     []Service    `yaml:"services" toml:"services" validate:"required,min=1,dive"`
	UAC          UAC          `yaml:"uac,omitempty" toml:"uac,omitempty"`
	// NSSM is the path to nssm.exe; empty means resolve it from PATH.
	NSSM string `yaml:"nssm,omitempty" toml:"nssm,omitempty"`
}

// Package is a Chocolatey package, optionally pinned.
type Package struct {
	Name    string `yaml:"name" toml:"name" validate:"required,package_name"`
	Version string `yaml:"version,omitempty" toml:"version,omitempty" validate:"omitempty,max=64"`
}

// Repository is the git repository cloned onto the machine.
type Repository struct {
	URL         string `yaml:"url" toml:"url" validate:"required,git_url"`
	Destination string `yaml:"destination" toml:"destination" validate:"required"`
	Branch      string `yaml:"branch,omitempty" toml:"branch,omitempty"`
	Depth       int    `yaml:"depth,omitempty" toml:"depth,omitempty" validate:"omitempty,min=0"`
}

// Dependencies is the Python requirements manifest installed after cloning.
// A relative Requirements path is resolved against the repository destination.
type Dependencies struct {
	Interpreter  string `yaml:"interpreter,omitempty" toml:"interpreter,omitempty"`
	Requirements string `yaml:"requirements" toml:"requirements" validate:"required"`
}

// Service is a program registered as a Windows service through NSSM.
type Service struct {
	Name       string `yaml:"name" toml:"name" validate:"required,service_name"`
	Executable string `yaml:"executable" toml:"executable" validate:"required"`
	Arguments  string `yaml:"arguments,omitempty" toml:"arguments,omitempty"`
	WorkDir    string `yaml:"workdir,omitempty" toml:"workdir,omitempty"`
	StdoutLog  string `yaml:"stdout_log,omitempty" toml:"stdout_log,omitempty"`
	StderrLog  string `yaml:"stderr_log,omitempty" toml:"stderr_log,omitempty"`
}

// UAC controls whether provisioning suspends User Account Control while it
// mutates the machine. By default it is suspended and restored afterwards.
type UAC struct {
	LeaveEnabled bool `yaml:"leave_enabled,omitempty" toml:"leave_enabled,omitempty"`
}

// Default returns the built-in configuration. It has no provision section:
// provisioning always needs a plan document naming the repository.
func Default() Config {
	return Config{
		Version: "1.0",
		Name:    "hostprep",
		Settings: Settings{
			HaltOnRequiredFailure: true,
			StepTimeout:           300,
		},
		Diagnose: Diagnose{
			Service:     "ScreenshotService",
			CapturePath: DefaultCapturePath,
		},
	}
}
