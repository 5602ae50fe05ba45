// Package api
// Author: momentics
//
// Cooperative poller abstraction: one resumption of a single-threaded
// service task.

package api

// Poller is a cooperative task driven by an external loop. Each Poll call
// is one full resumption; the implementation must never block.
type Poller interface {
	// Poll performs up to maxEvents units of work and returns the number
	// handled. A zero count with a nil error means "nothing ready" and
	// the caller suspends until woken. A non-nil error is terminal.
	Poll(maxEvents int) (handled int, err error)
}
