// File: core/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop drives one cooperative Poller: it resumes the poller, and
// when no work is ready it parks on a wake signal with adaptive timer
// backoff as a safety net. Wake sources are descriptor readability
// (reactor), command submission (handles) and queue drain (consumers).

package concurrency

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-inotify/api"
)

// EventLoop runs a single api.Poller until it fails or Stop is called.
type EventLoop struct {
	poller    api.Poller
	batchSize int
	wakeCh    chan struct{}
	quitCh    chan struct{}
	doneCh    chan struct{}
	running   atomic.Bool
	err       atomic.Value // terminal poller error, if any
}

// NewEventLoop creates a loop resuming poller with up to batchSize units
// of work per cycle.
func NewEventLoop(poller api.Poller, batchSize int) *EventLoop {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &EventLoop{
		poller:    poller,
		batchSize: batchSize,
		wakeCh:    make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Wake resumes a parked loop. Non-blocking, safe from any goroutine;
// coalesces with an already pending wakeup.
func (el *EventLoop) Wake() {
	select {
	case el.wakeCh <- struct{}{}:
	default:
	}
}

// Run executes the polling loop until Stop or a terminal poller error.
// It returns the terminal error, or nil after a clean Stop.
func (el *EventLoop) Run() error {
	if !el.running.CompareAndSwap(false, true) {
		return nil // already running
	}
	defer func() {
		close(el.doneCh)
		el.running.Store(false)
	}()

	backoffNs := int64(1)
	const maxBackoffNs = int64(1_000_000)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	for {
		select {
		case <-el.quitCh:
			return nil
		default:
		}

		handled, err := el.poller.Poll(el.batchSize)
		if err != nil {
			el.err.Store(err)
			return err
		}
		if handled > 0 {
			backoffNs = 1
			continue
		}

		// Nothing ready: park until woken, with backoff fallback.
		timer.Reset(time.Duration(backoffNs) * time.Nanosecond)
		select {
		case <-el.quitCh:
			stopTimer(timer)
			return nil
		case <-el.wakeCh:
			stopTimer(timer)
			backoffNs = 1
		case <-timer.C:
			backoffNs *= 2
			if backoffNs > maxBackoffNs {
				backoffNs = maxBackoffNs
			}
		}
	}
}

// Stop signals Run to exit and waits for completion.
func (el *EventLoop) Stop() {
	select {
	case <-el.quitCh:
		// already stopping
	default:
		close(el.quitCh)
	}
	if el.running.Load() {
		<-el.doneCh
	}
}

// Err returns the terminal poller error observed by Run, if any.
func (el *EventLoop) Err() error {
	if v := el.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
