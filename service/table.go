// File: service/table.go
// Package service - watch table and per-watch state.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The table is exclusively owned by the service loop. The only state
// shared with consumers is each entry's SPSC ring plus its ready/done
// signals, single-producer (dispatcher) / single-consumer (one watcher)
// per entry.

package service

import (
	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/control"
	"github.com/momentics/hioload-inotify/core/concurrency"
)

// WatcherID identifies one registration independently of the kernel
// watch descriptor, which may be reused after removal.
type WatcherID uint64

// entry is the live state of one registered watch.
type entry struct {
	id      WatcherID
	wd      int32
	chanIdx int
	path    string
	mask    api.Mask

	ring  *concurrency.SPSCRing[api.WatcherEvent]
	ready chan struct{} // cap 1; pulsed by the dispatcher on enqueue
	done  chan struct{} // closed on termination, after termErr is set

	termErr error // valid once done is closed
}

func newEntry(id WatcherID, path string, mask api.Mask, ringCap int) *entry {
	return &entry{
		id:    id,
		wd:    -1,
		path:  path,
		mask:  mask,
		ring:  concurrency.NewSPSCRing[api.WatcherEvent](ringCap),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// deliver enqueues one stream item and pulses the consumer.
// Returns false when the ring is saturated.
func (e *entry) deliver(item api.WatcherEvent) bool {
	if !e.ring.Enqueue(item) {
		return false
	}
	select {
	case e.ready <- struct{}{}:
	default:
	}
	return true
}

// terminate marks the stream ended. Loop-owned; idempotent.
func (e *entry) terminate(err error) {
	select {
	case <-e.done:
		return
	default:
	}
	e.termErr = err
	close(e.done)
}

// channelState bundles one notification channel with its wd mapping and
// its persistent read buffer. buf[:rest] holds the unconsumed suffix
// carried over from the previous decode.
type channelState struct {
	ch   api.NotifyChannel
	wds  map[int32]WatcherID
	buf  []byte
	rest int
}

// lookup resolves a watch descriptor to its live entry, or nil. Absence
// is a normal race with removal, not an error.
func (s *Service) lookup(ci int, wd int32) *entry {
	if ci >= len(s.channels) {
		return nil
	}
	id, ok := s.channels[ci].wds[wd]
	if !ok {
		return nil
	}
	return s.watchers[id]
}

// removeEntry unlinks an entry from the table and terminates its stream.
// Idempotent: a second call for the same id is a no-op because the
// watcher map no longer holds it. Removal happens within the same drain
// step that observes it, so a descriptor reused by the kernel can never
// resolve to a stale entry.
func (s *Service) removeEntry(e *entry, termErr error, kernelRemove bool) {
	if _, live := s.watchers[e.id]; !live {
		return
	}
	delete(s.watchers, e.id)

	cs := s.channels[e.chanIdx]
	if cur, ok := cs.wds[e.wd]; ok && cur == e.id {
		delete(cs.wds, e.wd)
		if kernelRemove {
			// Best effort: the kernel may already have dropped it.
			_ = cs.ch.RemoveWatch(e.wd)
		}
	}

	e.terminate(termErr)
	s.metrics.Set(control.KeyWatchesLive, int64(len(s.watchers)))
}
