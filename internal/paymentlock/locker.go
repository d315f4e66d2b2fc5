// Package paymentlock serializes work on a single payment across goroutines
// and, when Redis is configured, across processes.
package paymentlock

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("payment_lock_not_acquired")

// Locker hands out exclusive per-key locks. Locks are not reentrant.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// unlock func is safe to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}

// Key namespaces a payment id.
func Key(paymentID string) string {
	return "picklepay:payment:" + paymentID
}
