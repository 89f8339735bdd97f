// Package guard provides the process-wide mutual-exclusion lock that scopes
// logical index mutations. A logical mutation reads old documents, diffs
// membership and enqueues several physical writes; the guard keeps two such
// sequences from interleaving. It is distinct from the write queue, which
// only serializes individual physical writes.
package guard

import "context"

// Guard is a context-aware mutex. The zero value is not usable; call New.
type Guard struct {
	sem chan struct{}
}

// New creates an unlocked guard.
func New() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// Lock acquires the guard, blocking until it is free or ctx is done.
func (g *Guard) Lock(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the guard. Calling Unlock without a held lock panics.
func (g *Guard) Unlock() {
	select {
	case <-g.sem:
	default:
		panic("guard: unlock of unlocked guard")
	}
}
