// File: api/watcher.go
// Package api defines the caller-facing watch stream contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// EventStream is a single-consumer, stateful sequence of watcher events
// for one registered path.
type EventStream interface {
	// Next blocks until an event is available or the watch terminates.
	// Termination is reported as an error: ErrWatchEnded for a clean end
	// (explicit close, kernel dropped the watch), anything else for a
	// fatal channel failure.
	Next(ctx context.Context) (WatcherEvent, error)

	// Close requests watch removal. Safe to call more than once; the
	// removal is applied by the service loop, never synchronously.
	Close() error
}
