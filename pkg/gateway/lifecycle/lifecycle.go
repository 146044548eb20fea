// Package lifecycle tracks whether the gateway is draining. The readiness
// handler reports NOT_READY once draining starts so load balancers stop
// routing new session mints to an instance that is about to exit.
package lifecycle

import "sync/atomic"

// Lifecycle is shared between the server's readiness handler and the
// shutdown path. The zero value is ready (not draining). All methods are
// safe on a nil receiver so handlers can be constructed without one in
// tests.
type Lifecycle struct {
	draining atomic.Bool
}

// SetDraining marks the process as draining (or clears the mark). The
// shutdown path flips this before waiting out the grace period.
func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

// IsDraining reports whether shutdown has begun.
func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}
