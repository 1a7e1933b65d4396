package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistryLifecycle(t *testing.T) {
	InitRegistry(nil)
	if IsEnabled() {
		t.Fatal("IsEnabled() = true before InitRegistry, want false")
	}
	if Registry() != nil {
		t.Fatal("Registry() != nil before InitRegistry")
	}

	reg := prometheus.NewRegistry()
	InitRegistry(reg)
	defer InitRegistry(nil)

	if !IsEnabled() {
		t.Fatal("IsEnabled() = false after InitRegistry, want true")
	}
	if Registry() != reg {
		t.Fatal("Registry() did not return the installed registry")
	}
}
