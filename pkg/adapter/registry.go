package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory constructs an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	aliases    = make(map[string]string)
)

// Register makes an adapter available under name and any aliases, which are
// also accepted as database URL schemes. Drivers call it from init().
// A later registration under the same name replaces the earlier one.
func Register(name string, factory Factory, alias ...string) {
	if factory == nil {
		panic("adapter: Register factory is nil for " + name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// Resolve maps a registered name or alias to its canonical adapter name.
func Resolve(name string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return resolveLocked(strings.ToLower(name))
}

func resolveLocked(name string) (string, bool) {
	if _, ok := factories[name]; ok {
		return name, true
	}
	if canonical, ok := aliases[name]; ok {
		return canonical, true
	}
	return "", false
}

// NewAdapter returns an unconnected adapter for cfg.Type. A nil logger
// discards output.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	registryMu.RLock()
	name, ok := resolveLocked(strings.ToLower(cfg.Type))
	factory := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the canonical adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether name or an alias of it is registered.
func IsRegistered(name string) bool {
	_, ok := Resolve(name)
	return ok
}

// UnknownAdapterError is returned for a database type or URL scheme that no
// linked-in driver provides.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown database type %q (available: %s)\nHint: check database.type or the database.url scheme in sqlbench.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

// Open creates the adapter named by cfg.Type and connects it. On a connect
// failure the adapter is closed before returning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Type, err)
	}
	return a, nil
}
