package ports

import (
	"context"
	"strings"
)

// PackageManager installs system packages.
type PackageManager interface {
	Installed(ctx context.Context, name string) (installed bool, version string, err error)
	Install(ctx context.Context, name, version string) error
}

// RepoSpec describes a git working copy.
type RepoSpec struct {
	URL         string
	Destination string
	Branch      string
	Depth       int
}

// RepoState is what exists at a RepoSpec's destination.
type RepoState struct {
	Exists    bool
	IsRepo    bool
	RemoteURL string
	Head      string
	Branch    string
}

// RepositoryCloner inspects and clones git repositories.
type RepositoryCloner interface {
	Inspect(ctx context.Context, spec RepoSpec) (RepoState, error)
	Clone(ctx context.Context, spec RepoSpec) error
}

// DependencySpec points at a requirements manifest and the interpreter that
// installs it.
type DependencySpec struct {
	Interpreter  string
	Requirements string
}

// DependencyInstaller installs language dependencies. Fingerprint returns the
// digest of the manifest currently on disk and the digest recorded at the
// last successful install; they match when dependencies are up to date.
type DependencyInstaller interface {
	Fingerprint(ctx context.Context, spec DependencySpec) (current, installed string, err error)
	Install(ctx context.Context, spec DependencySpec) error
}

// WrappedService declares a program run as a system service by a service
// wrapper.
type WrappedService struct {
	Name       string
	Executable string
	Arguments  string
	WorkDir    string
	StdoutLog  string
	StderrLog  string
}

// WrappedState is the wrapper's current view of a service.
type WrappedState struct {
	Installed  bool
	Running    bool
	Status     string
	Executable string
	Arguments  string
	WorkDir    string
	StdoutLog  string
	StderrLog  string
}

// Directory returns WorkDir, or the directory holding Executable when no
// working directory is configured. That is the directory a wrapper starts
// the program in.
func (s WrappedService) Directory() string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	i := strings.LastIndexAny(s.Executable, `\/`)
	if i < 0 {
		return ""
	}
	dir := s.Executable[:i]
	if dir == "" || strings.HasSuffix(dir, ":") {
		// Keep the root separator of "C:\x.exe" and "/x".
		dir = s.Executable[:i+1]
	}
	return dir
}

// Matches reports whether the wrapper configuration equals want.
func (s WrappedState) Matches(want WrappedService) bool {
	return s.Installed &&
		s.Executable == want.Executable &&
		s.Arguments == want.Arguments &&
		strings.EqualFold(s.WorkDir, want.Directory()) &&
		s.StdoutLog == want.StdoutLog &&
		s.StderrLog == want.StderrLog
}

// ServiceWrapper registers programs as services.
type ServiceWrapper interface {
	Inspect(ctx context.Context, svc WrappedService) (WrappedState, error)
	Install(ctx context.Context, svc WrappedService) error
	Start(ctx context.Context, name string) error
}
