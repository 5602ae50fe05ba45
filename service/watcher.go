// File: service/watcher.go
// Package service - the caller-facing watch handle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package service

import (
	"context"
	"sync"

	"github.com/momentics/hioload-inotify/api"
)

// Ensure compile-time interface compliance.
var _ api.EventStream = (*Watcher)(nil)

// Watcher is the single-consumer event stream of one registered path.
//
// The stream terminates when the caller closes it, when the kernel drops
// the watch (target deleted or moved away — both reported as
// api.ErrWatchEnded), or when the service fails, in which case Next
// returns the fatal error. Already-enqueued events are always drained
// before the terminal error is reported.
type Watcher struct {
	svc       *Service
	e         *entry
	eos       bool
	closeOnce sync.Once
}

func newWatcher(s *Service, e *entry) *Watcher {
	return &Watcher{svc: s, e: e}
}

// Path returns the registered path.
func (w *Watcher) Path() string {
	return w.e.path
}

// Mask returns the registered event mask.
func (w *Watcher) Mask() api.Mask {
	return w.e.mask
}

// Next blocks until an event is available, the watch terminates, or ctx
// is done. Consuming an event frees queue space and wakes a service
// loop stalled on backpressure.
func (w *Watcher) Next(ctx context.Context) (api.WatcherEvent, error) {
	var zero api.WatcherEvent
	if w.eos {
		return zero, w.e.termErr
	}
	for {
		if item, ok := w.e.ring.Dequeue(); ok {
			w.svc.wake()
			return item, nil
		}
		select {
		case <-w.e.ready:
			// Re-check the ring; the pulse may be stale.
		case <-w.e.done:
			// Drain what the dispatcher enqueued before termination.
			if item, ok := w.e.ring.Dequeue(); ok {
				w.svc.wake()
				return item, nil
			}
			w.eos = true
			return zero, w.e.termErr
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close requests removal of the watch. The request is applied by the
// next service cycle; pending events remain readable until the stream
// reports api.ErrWatchEnded. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.svc.inbox.push(deregisterCmd{id: w.e.id})
		w.svc.wake()
	})
	return nil
}
