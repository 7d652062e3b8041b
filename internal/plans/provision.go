package plans

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Step IDs and prefixes of the provisioning plan.
const (
	StepInstallPackagePrefix  = "install-package-"
	StepCloneRepository       = "clone-repository"
	StepInstallDependencies   = "install-dependencies"
	StepRegisterServicePrefix = "register-service-"

	// UACGuardID identifies the guard that suspends User Account Control.
	UACGuardID = "uac"
)

// EnableLUA is the policy value behind User Account Control.
var EnableLUA = ports.PolicyValue{
	Hive: ports.HiveLocalMachine,
	Path: `SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System`,
	Name: "EnableLUA",
}

var windowsAbsPath = regexp.MustCompile(`^(?:[A-Za-z]:[\\/]|\\\\)`)

// ProvisionDeps are the capabilities provisioning needs.
type ProvisionDeps struct {
	Packages ports.PackageManager
	Repos    ports.RepositoryCloner
	Deps     ports.DependencyInstaller
	Wrapper  ports.ServiceWrapper
	Policies ports.PolicyStore
}

// Provisioning installs packages, clones the repository, installs its
// dependencies, and registers the configured services. Unless the plan opts
// out, every step holds the UAC guard while it applies.
func Provisioning(cfg config.Provision, deps ProvisionDeps) []engine.Step {
	var guard *engine.Guard
	if !cfg.UAC.LeaveEnabled {
		guard = UACGuard(deps.Policies)
	}

	steps := make([]engine.Step, 0, len(cfg.Packages)+len(cfg.Services)+2)
	for _, pkg := range cfg.Packages {
		steps = append(steps, packageStep(pkg, deps.Packages))
	}
	steps = append(steps,
		cloneStep(cfg.Repository, deps.Repos),
		dependenciesStep(cfg, deps.Deps),
	)
	for _, svc := range cfg.Services {
		steps = append(steps, serviceStep(svc, deps.Wrapper))
	}

	for i := range steps {
		steps[i].Guard = guard
	}
	return steps
}

// UACGuard disables User Account Control on acquisition and restores the
// value it observed on release. A machine where UAC is already off is left
// untouched.
func UACGuard(store ports.PolicyStore) *engine.Guard {
	var (
		mu       sync.Mutex
		restore  bool
		previous uint32
	)

	return &engine.Guard{
		ID:          UACGuardID,
		Description: "User Account Control suspended while provisioning",
		Acquire: func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()

			data, found, err := store.ReadDWORD(ctx, EnableLUA)
			if err != nil {
				return fmt.Errorf("read %s: %w", EnableLUA, err)
			}
			if found && data == 0 {
				restore = false
				return nil
			}
			// An absent value means UAC is on.
			previous = 1
			if found {
				previous = data
			}
			if err := store.WriteDWORD(ctx, EnableLUA, 0); err != nil {
				return fmt.Errorf("disable UAC: %w", err)
			}
			restore = true
			return nil
		},
		Release: func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()

			if !restore {
				return nil
			}
			if err := store.WriteDWORD(ctx, EnableLUA, previous); err != nil {
				return fmt.Errorf("restore UAC: %w", err)
			}
			restore = false
			return nil
		},
	}
}

func packageStep(pkg config.Package, manager ports.PackageManager) engine.Step {
	want := pkg.Version
	desc := fmt.Sprintf("package %s is installed", pkg.Name)
	if want != "" {
		desc = fmt.Sprintf("package %s %s is installed", pkg.Name, want)
	}

	return engine.Step{
		ID:          StepInstallPackagePrefix + pkg.Name,
		Description: desc,
		Severity:    engine.SeverityRequired,
		Probe: func(ctx context.Context) (engine.Snapshot, error) {
			installed, version, err := manager.Installed(ctx, pkg.Name)
			if err != nil {
				return nil, err
			}
			return engine.Snapshot{"installed": strconv.FormatBool(installed), "version": version}, nil
		},
		Satisfied: func(s engine.Snapshot) bool {
			return s.Get("installed") == "true" && (want == "" || s.Get("version") == want)
		},
		Apply: func(ctx context.Context, _ engine.Snapshot) error {
			return manager.Install(ctx, pkg.Name, want)
		},
		Recommendation: fmt.Sprintf("Install %s manually with `choco install %s -y` and check the Chocolatey log.", pkg.Name, pkg.Name),
	}
}

func cloneStep(repo config.Repository, cloner ports.RepositoryCloner) engine.Step {
	spec := ports.RepoSpec{
		URL:         repo.URL,
		Destination: repo.Destination,
		Branch:      repo.Branch,
		Depth:       repo.Depth,
	}

	return engine.Step{
		ID:          StepCloneRepository,
		Description: fmt.Sprintf("%s is cloned to %s", repo.URL, repo.Destination),
		Severity:    engine.SeverityRequired,
		Probe: func(ctx context.Context) (engine.Snapshot, error) {
			st, err := cloner.Inspect(ctx, spec)
			if err != nil {
				return nil, err
			}
			return engine.Snapshot{
				"exists":     strconv.FormatBool(st.Exists),
				"is_repo":    strconv.FormatBool(st.IsRepo),
				"remote_url": st.RemoteURL,
				"branch":     st.Branch,
				"head":       st.Head,
			}, nil
		},
		Satisfied: func(s engine.Snapshot) bool {
			return s.Get("is_repo") == "true" &&
				s.Get("remote_url") == spec.URL &&
				(spec.Branch == "" || s.Get("branch") == spec.Branch)
		},
		Apply: func(ctx context.Context, _ engine.Snapshot) error {
			return cloner.Clone(ctx, spec)
		},
		Recommendation: fmt.Sprintf("Move or remove %s if it holds something other than %s; existing directories are never overwritten.", repo.Destination, repo.URL),
	}
}

func dependenciesStep(cfg config.Provision, installer ports.DependencyInstaller) engine.Step {
	spec := ports.DependencySpec{
		Interpreter:  cfg.Dependencies.Interpreter,
		Requirements: RequirementsPath(cfg),
	}

	return engine.Step{
		ID:          StepInstallDependencies,
		Description: fmt.Sprintf("requirements in %s are installed", spec.Requirements),
		Severity:    engine.SeverityRequired,
		Probe: func(ctx context.Context) (engine.Snapshot, error) {
			current, installed, err := installer.Fingerprint(ctx, spec)
			if errors.Is(err, fs.ErrNotExist) {
				return engine.Snapshot{"manifest": "missing"}, nil
			}
			if err != nil {
				return nil, err
			}
			return engine.Snapshot{
				"manifest":         "present",
				"digest":           current,
				"installed_digest": installed,
			}, nil
		},
		Satisfied: func(s engine.Snapshot) bool {
			return s.Get("digest") != "" && s.Get("digest") == s.Get("installed_digest")
		},
		Apply: func(ctx context.Context, _ engine.Snapshot) error {
			return installer.Install(ctx, spec)
		},
		Recommendation: fmt.Sprintf("Run `%s -m pip install -r %s` and fix the reported package errors.", interpreterOrDefault(spec.Interpreter), spec.Requirements),
	}
}

func serviceStep(svc config.Service, wrapper ports.ServiceWrapper) engine.Step {
	want := ports.WrappedService{
		Name:       svc.Name,
		Executable: svc.Executable,
		Arguments:  svc.Arguments,
		WorkDir:    svc.WorkDir,
		StdoutLog:  svc.StdoutLog,
		StderrLog:  svc.StderrLog,
	}

	return engine.Step{
		ID:          StepRegisterServicePrefix + svc.Name,
		Description: fmt.Sprintf("service %s is registered and running", svc.Name),
		Severity:    engine.SeverityRequired,
		Probe: func(ctx context.Context) (engine.Snapshot, error) {
			st, err := wrapper.Inspect(ctx, want)
			if err != nil {
				return nil, err
			}
			return engine.Snapshot{
				"installed":  strconv.FormatBool(st.Installed),
				"configured": strconv.FormatBool(st.Matches(want)),
				"running":    strconv.FormatBool(st.Running),
				"status":     st.Status,
				"executable": st.Executable,
				"arguments":  st.Arguments,
			}, nil
		},
		Satisfied: func(s engine.Snapshot) bool {
			return s.Get("configured") == "true" && s.Get("running") == "true"
		},
		Apply: func(ctx context.Context, before engine.Snapshot) error {
			if before.Get("configured") != "true" {
				if err := wrapper.Install(ctx, want); err != nil {
					return err
				}
			}
			return wrapper.Start(ctx, svc.Name)
		},
		Recommendation: fmt.Sprintf("Inspect %s with `nssm edit %s` and its log files.", svc.Name, svc.Name),
	}
}

// RequirementsPath resolves the requirements manifest against the
// repository destination when it is relative.
func RequirementsPath(cfg config.Provision) string {
	req := cfg.Dependencies.Requirements
	if filepath.IsAbs(req) || windowsAbsPath.MatchString(req) || cfg.Repository.Destination == "" {
		return req
	}
	if windowsAbsPath.MatchString(cfg.Repository.Destination) {
		// Keep Windows separators when planning on another OS.
		return cfg.Repository.Destination + `\` + req
	}
	return filepath.Join(cfg.Repository.Destination, req)
}

func interpreterOrDefault(interpreter string) string {
	if interpreter == "" {
		return "python"
	}
	return interpreter
}
