package testsupport

import (
	"testing"

	"panelreel/internal/clientstate"
	"panelreel/internal/config"
)

// MustOpenStore opens a clientstate.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clientstate.Store {
	t.Helper()

	store, err := clientstate.Open(cfg)
	if err != nil {
		t.Fatalf("clientstate.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
