package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Policies is an in-memory ports.PolicyStore.
type Policies struct {
	mu     sync.Mutex
	values map[string]uint32
	writes []string

	// Deferred lists values whose writes are recorded but do not change what
	// ReadDWORD returns, like settings that need a reboot.
	Deferred map[string]bool
	ReadErr  error
	WriteErr error
}

// NewPolicies returns an empty store.
func NewPolicies() *Policies {
	return &Policies{values: make(map[string]uint32), Deferred: make(map[string]bool)}
}

// Set seeds a value.
func (p *Policies) Set(value ports.PolicyValue, data uint32) *Policies {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[value.String()] = data
	return p
}

// Writes lists every WriteDWORD as "path=data" in order.
func (p *Policies) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

func (p *Policies) ReadDWORD(_ context.Context, value ports.PolicyValue) (uint32, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReadErr != nil {
		return 0, false, p.ReadErr
	}
	data, ok := p.values[value.String()]
	return data, ok, nil
}

func (p *Policies) WriteDWORD(_ context.Context, value ports.PolicyValue, data uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return p.WriteErr
	}
	key := value.String()
	p.writes = append(p.writes, key+"="+strconv.FormatUint(uint64(data), 10))
	if !p.Deferred[key] {
		p.values[key] = data
	}
	return nil
}
