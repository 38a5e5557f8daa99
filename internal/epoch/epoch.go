// Package epoch implements generation tokens used to discard continuations
// captured before a restart, navigation, or reload superseded them.
package epoch

// Counter issues monotonically increasing generations. It is owned by one
// scope (a page container, a sequencer, a navigation) and is only touched
// from the loop.
type Counter struct {
	gen uint64
}

// Next bumps the generation and returns a token for it. Every token issued
// earlier stops being current.
func (c *Counter) Next() Token {
	c.gen++
	return Token{counter: c, gen: c.gen}
}

// Token returns a token for the current generation without bumping it.
func (c *Counter) Token() Token {
	return Token{counter: c, gen: c.gen}
}

// Invalidate bumps the generation without handing out a new token.
func (c *Counter) Invalidate() {
	c.gen++
}

// Generation reports the current generation number.
func (c *Counter) Generation() uint64 { return c.gen }

// Token is a captured generation. The zero Token is never current.
type Token struct {
	counter *Counter
	gen     uint64
}

// Current reports whether no newer generation has been issued since the
// token was captured.
func (t Token) Current() bool {
	return t.counter != nil && t.counter.gen == t.gen
}

// Generation reports the captured generation number.
func (t Token) Generation() uint64 { return t.gen }

// Guard wraps fn so it only runs while the token is current.
func (t Token) Guard(fn func()) func() {
	return func() {
		if t.Current() {
			fn()
		}
	}
}
