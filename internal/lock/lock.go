// Package lock guards work that must not run in two processes at once.
package lock

import "context"

// Locker is a non-blocking mutual exclusion lease.
type Locker interface {
	// TryLock reports whether the lease was taken.
	TryLock(ctx context.Context) (bool, error)
	// Held reports whether the lease taken by TryLock is still ours.
	Held() bool
	// Unlock releases a lease taken by this holder.
	Unlock(ctx context.Context) error
}

// Local always grants the lease. It is used when only one process runs.
type Local struct{}

func (Local) TryLock(context.Context) (bool, error) { return true, nil }

func (Local) Held() bool { return true }

func (Local) Unlock(context.Context) error { return nil }
