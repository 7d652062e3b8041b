package testutil

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Packages is an in-memory ports.PackageManager.
type Packages struct {
	mu        sync.Mutex
	installed map[string]string
	Installs  []string
	Err       error
}

// NewPackages returns a manager with name=version pairs preinstalled.
func NewPackages(installed map[string]string) *Packages {
	p := &Packages{installed: make(map[string]string)}
	for k, v := range installed {
		p.installed[k] = v
	}
	return p
}

func (p *Packages) Installed(_ context.Context, name string) (bool, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.installed[name]
	return ok, v, nil
}

func (p *Packages) Install(_ context.Context, name, version string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Installs = append(p.Installs, name)
	if p.Err != nil {
		return p.Err
	}
	if version == "" {
		version = "latest"
	}
	p.installed[name] = version
	return nil
}

// Repos is an in-memory ports.RepositoryCloner.
type Repos struct {
	mu     sync.Mutex
	states map[string]ports.RepoState
	Clones []ports.RepoSpec
	Err    error
}

// NewRepos returns a cloner with no working copies.
func NewRepos() *Repos {
	return &Repos{states: make(map[string]ports.RepoState)}
}

func (r *Repos) Inspect(_ context.Context, spec ports.RepoSpec) (ports.RepoState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[spec.Destination], nil
}

func (r *Repos) Clone(_ context.Context, spec ports.RepoSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clones = append(r.Clones, spec)
	if r.Err != nil {
		return r.Err
	}
	r.states[spec.Destination] = ports.RepoState{
		Exists:    true,
		IsRepo:    true,
		RemoteURL: spec.URL,
		Head:      "0123456789abcdef0123456789abcdef01234567",
		Branch:    spec.Branch,
	}
	return nil
}

// Deps is an in-memory ports.DependencyInstaller keyed by requirements path.
type Deps struct {
	mu        sync.Mutex
	Current   string
	installed map[string]string
	Installs  int
	Err       error
}

// NewDeps returns an installer whose manifest digest is current.
func NewDeps(current string) *Deps {
	return &Deps{Current: current, installed: make(map[string]string)}
}

func (d *Deps) Fingerprint(_ context.Context, spec ports.DependencySpec) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Current, d.installed[spec.Requirements], nil
}

func (d *Deps) Install(_ context.Context, spec ports.DependencySpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Installs++
	if d.Err != nil {
		return d.Err
	}
	d.installed[spec.Requirements] = d.Current
	return nil
}

// Wrapper is an in-memory ports.ServiceWrapper.
type Wrapper struct {
	mu       sync.Mutex
	states   map[string]ports.WrappedState
	Installs []string
	Starts   []string
	Err      error
}

// NewWrapper returns a wrapper with no registered services.
func NewWrapper() *Wrapper {
	return &Wrapper{states: make(map[string]ports.WrappedState)}
}

func (w *Wrapper) Inspect(_ context.Context, svc ports.WrappedService) (ports.WrappedState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.states[svc.Name], nil
}

func (w *Wrapper) Install(_ context.Context, svc ports.WrappedService) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Installs = append(w.Installs, svc.Name)
	if w.Err != nil {
		return w.Err
	}
	w.states[svc.Name] = ports.WrappedState{
		Installed:  true,
		Status:     "SERVICE_STOPPED",
		Executable: svc.Executable,
		Arguments:  svc.Arguments,
		WorkDir:    svc.Directory(),
		StdoutLog:  svc.StdoutLog,
		StderrLog:  svc.StderrLog,
	}
	return nil
}

func (w *Wrapper) Start(_ context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Starts = append(w.Starts, name)
	if w.Err != nil {
		return w.Err
	}
	st := w.states[name]
	st.Running = true
	st.Status = "SERVICE_RUNNING"
	w.states[name] = st
	return nil
}
