package main

import (
	"testing"

	"github.com/gofrs/flock"
)

func newHeldLock(t *testing.T, path string) func() {
	t.Helper()
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	return func() { _ = lock.Unlock() }
}
