package epoch

import "testing"

func TestTokenCurrency(t *testing.T) {
	var c Counter
	if (Token{}).Current() {
		t.Fatal("zero token must not be current")
	}

	first := c.Next()
	if !first.Current() {
		t.Fatal("fresh token should be current")
	}
	peek := c.Token()
	if !peek.Current() || peek.Generation() != first.Generation() {
		t.Fatal("Token should observe the current generation")
	}

	second := c.Next()
	if first.Current() {
		t.Fatal("superseded token still current")
	}
	if !second.Current() {
		t.Fatal("latest token not current")
	}

	c.Invalidate()
	if second.Current() {
		t.Fatal("Invalidate should retire outstanding tokens")
	}
	if c.Generation() != 3 {
		t.Fatalf("unexpected generation %d", c.Generation())
	}
}

func TestGuardSkipsStaleCallbacks(t *testing.T) {
	var c Counter
	ran := 0
	stale := c.Next().Guard(func() { ran++ })
	fresh := c.Next().Guard(func() { ran += 10 })
	stale()
	fresh()
	if ran != 10 {
		t.Fatalf("expected only the fresh callback to run, got %d", ran)
	}
}
