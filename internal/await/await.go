// Package await bounds blocking ledger reads.
package await

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/encryptme/core"
)

// WithTimeout runs op with a context bounded by d. When d elapses before op
// returns, the result is core.ErrTimeout: the operation did not complete,
// which says nothing about whether it would have succeeded. A non-positive d
// disables the bound.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := op(ctx)
		done <- result{val, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == context.DeadlineExceeded {
			var zero T
			return zero, fmt.Errorf("after %s: %w", d, core.ErrTimeout)
		}
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, fmt.Errorf("after %s: %w", d, core.ErrTimeout)
		}
		return zero, ctx.Err()
	}
}
