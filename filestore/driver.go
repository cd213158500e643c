package filestore

import (
	"context"
	"sort"
	"sync"

	"github.com/koustreak/selcdn/errs"
)

// OpenFunc connects a driver using cfg.
type OpenFunc func(ctx context.Context, cfg *Config) (Store, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[Provider]OpenFunc)
)

// Register makes a driver available to Open. Drivers call it from init.
// It panics when provider is registered twice.
func Register(provider Provider, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if open == nil {
		panic("filestore: Register open func is nil")
	}
	if _, dup := drivers[provider]; dup {
		panic("filestore: Register called twice for provider " + string(provider))
	}
	drivers[provider] = open
}

// Providers returns the registered providers, sorted.
func Providers() []Provider {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]Provider, 0, len(drivers))
	for p := range drivers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open validates cfg and connects the driver registered for cfg.Provider.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errs.Invalid("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driversMu.RLock()
	open, ok := drivers[cfg.Provider]
	driversMu.RUnlock()
	if !ok {
		return nil, errs.Invalid("unknown provider " + string(cfg.Provider) + " (forgotten import?)")
	}
	return open(ctx, cfg)
}
