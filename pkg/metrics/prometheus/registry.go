package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry installs reg as the process-wide registry that New uses
// when cmd/matterd wires up node-level collectors. Calling it more than
// once replaces the previous registry; collectors already constructed
// against the old one keep working, they're just no longer reachable
// from a fresh New call that relies on Registry().
func InitRegistry(reg *prometheus.Registry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry != nil
}

// Registry returns the registry installed by InitRegistry, or nil if
// metrics haven't been enabled.
func Registry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}
