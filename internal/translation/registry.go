package translation

import (
	"fmt"
	"strings"
)

// Registry holds translation providers in fixed priority order. The first
// provider to succeed ends the attempt for a chunk.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	registered := make([]Provider, 0, len(providers))
	seen := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		if provider == nil {
			return nil, fmt.Errorf("provider is nil")
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name == "" {
			return nil, fmt.Errorf("provider name is required")
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("provider %q is registered twice", name)
		}
		seen[name] = struct{}{}
		registered = append(registered, provider)
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no translation providers are registered")
	}
	return &Registry{providers: registered}, nil
}

// Providers returns the provider chain in priority order.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	return r.providers
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for _, provider := range r.providers {
		names = append(names, provider.Name())
	}
	return names
}

// RunState carries per-run provider enabled/disabled flags. A provider
// disabled after a rate-limit signal stays disabled for the remainder of
// the run; the state is never persisted across runs.
type RunState struct {
	disabled map[string]struct{}
}

func NewRunState() *RunState {
	return &RunState{disabled: make(map[string]struct{})}
}

func (s *RunState) Disable(name string) {
	if s == nil {
		return
	}
	s.disabled[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
}

func (s *RunState) Enabled(name string) bool {
	if s == nil {
		return true
	}
	_, disabled := s.disabled[strings.ToLower(strings.TrimSpace(name))]
	return !disabled
}
