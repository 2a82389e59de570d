// Package guard serializes duplicate in-flight operations. Concurrent
// calls sharing a key collapse into one execution whose result every
// caller receives, which keeps hot paths like token refresh from racing
// themselves for the same user.
package guard

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// ConcurrencyGuard deduplicates concurrent calls by key. The zero value
// is ready to use.
type ConcurrencyGuard struct {
	group singleflight.Group
}

// New returns a ready ConcurrencyGuard.
func New() *ConcurrencyGuard {
	return &ConcurrencyGuard{}
}

// Do runs fn once per key across concurrent callers and hands the single
// result to all of them. shared reports whether the result was produced
// by another caller's execution. A cancelled ctx releases the caller
// without interrupting the in-flight fn, so other waiters still get a
// result.
func (g *ConcurrencyGuard) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := g.group.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops the in-flight record for key so the next Do starts fresh.
func (g *ConcurrencyGuard) Forget(key string) {
	g.group.Forget(key)
}
