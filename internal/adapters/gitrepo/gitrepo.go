// Package gitrepo inspects and clones git working copies with go-git.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Cloner implements ports.RepositoryCloner.
type Cloner struct{}

var _ ports.RepositoryCloner = Cloner{}

// New returns a go-git backed cloner.
func New() Cloner { return Cloner{} }

// Inspect reports what exists at spec.Destination without modifying it.
func (Cloner) Inspect(_ context.Context, spec ports.RepoSpec) (ports.RepoState, error) {
	var state ports.RepoState

	if _, err := os.Stat(spec.Destination); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("cannot access destination: %w", err)
	}
	state.Exists = true

	repo, err := git.PlainOpen(spec.Destination)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("open repository at %s: %w", spec.Destination, err)
	}
	state.IsRepo = true

	if head, err := repo.Head(); err == nil {
		state.Head = head.Hash().String()
		if head.Name().IsBranch() {
			state.Branch = head.Name().Short()
		}
	}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil && len(remote.Config().URLs) > 0 {
		state.RemoteURL = remote.Config().URLs[0]
	}

	return state, nil
}

// Clone clones spec.URL into spec.Destination. An existing empty directory is
// reused; anything else at the destination is left untouched and reported.
func (c Cloner) Clone(ctx context.Context, spec ports.RepoSpec) error {
	if err := prepareDestination(spec.Destination); err != nil {
		return err
	}

	opts := &git.CloneOptions{URL: spec.URL}
	if spec.Depth > 0 {
		opts.Depth = spec.Depth
	}
	if spec.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(spec.Branch)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, spec.Destination, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", spec.URL, err)
	}
	return nil
}

func prepareDestination(dest string) error {
	entries, err := os.ReadDir(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create destination parent: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("cannot access destination: %w", err)
	case len(entries) > 0:
		return fmt.Errorf("destination %s exists and is not empty", dest)
	default:
		return nil
	}
}
