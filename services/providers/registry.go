package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dupatihari/azure-rag-demo/config"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Constructor builds a provider client from the completion settings
type Constructor func(ctx context.Context, cfg config.CompletionConfig) (Provider, error)

// Registry maps provider names to constructors
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register registers a constructor under name
func (r *Registry) Register(name string, c Constructor) error {
	if name == "" {
		return errors.New("provider name cannot be empty")
	}
	if c == nil {
		return errors.New("provider constructor cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return ErrProviderAlreadyRegistered
	}
	r.constructors[name] = c
	return nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory returns a Factory that constructs the configured provider on every call
func (r *Registry) Factory(cfg config.CompletionConfig) (Factory, error) {
	r.mu.RLock()
	c, ok := r.constructors[cfg.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, cfg.Provider)
	}

	return func(ctx context.Context) (Provider, error) {
		return c(ctx, cfg)
	}, nil
}
