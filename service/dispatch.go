// File: service/dispatch.go
// Package service - event dispatch and mask classification.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Saturation policy: backpressure. A record that cannot be enqueued is
// parked on the pending list and the read cycle stalls until the
// consumer signals drained space. No event is silently dropped for a
// slow consumer; the cost is a global loop stall while any queue is
// saturated.

package service

import (
	"path/filepath"

	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/control"
)

// pendingItem is one resolved delivery parked by backpressure.
type pendingItem struct {
	id          WatcherID
	item        api.WatcherEvent
	removeAfter bool // kernel dropped the watch; end stream after delivery
}

// classify derives the semantic kind from a raw mask. Precedence follows
// the kernel's own exclusivity: overflow and ignored records never carry
// other bits.
func classify(mask api.Mask) api.EventKind {
	switch {
	case mask&api.MaskQOverflow != 0:
		return api.KindOverflow
	case mask&api.MaskIgnored != 0:
		return api.KindIgnored
	case mask&api.MaskCreate != 0:
		return api.KindCreate
	case mask&(api.MaskDelete|api.MaskDeleteSelf) != 0:
		return api.KindDelete
	case mask&(api.MaskMovedFrom|api.MaskMoveSelf) != 0:
		return api.KindMoveFrom
	case mask&api.MaskMovedTo != 0:
		return api.KindMoveTo
	case mask&api.MaskModify != 0:
		return api.KindModify
	case mask&api.MaskAttrib != 0:
		return api.KindAttrib
	default:
		return api.KindOther
	}
}

// resolvePath joins the registered path with the record's relative name.
func resolvePath(base, name string) string {
	if name == "" {
		return base
	}
	return filepath.Join(base, name)
}

// dispatch routes one decoded record to the watch that produced it.
// Overflow records carry no usable descriptor and fan out to every live
// watch of the emitting channel. QueueFull parks the delivery on the
// pending list; the caller must stop reading until the list flushes.
func (s *Service) dispatch(ci int, raw api.RawEvent) api.DeliveryOutcome {
	if raw.Mask&api.MaskQOverflow != 0 {
		return s.dispatchOverflow(ci)
	}

	e := s.lookup(ci, raw.WD)
	if e == nil {
		// Stale record racing a removal; definitionally not retryable.
		s.metrics.Inc(control.KeyDroppedNoWatch, 1)
		return api.DroppedNoWatch
	}

	item := api.WatcherEvent{
		Type: api.Notified,
		Event: api.Event{
			Path:   resolvePath(e.path, raw.Name),
			Kind:   classify(raw.Mask),
			Mask:   raw.Mask,
			Cookie: raw.Cookie,
		},
	}
	removeAfter := raw.Mask&api.MaskIgnored != 0

	return s.tryDeliver(pendingItem{id: e.id, item: item, removeAfter: removeAfter})
}

// dispatchOverflow delivers a distinguished Overflow event to every live
// watch of channel ci: the kernel lost events without saying for which
// paths.
func (s *Service) dispatchOverflow(ci int) api.DeliveryOutcome {
	s.metrics.Inc(control.KeyOverflow, 1)
	if ci >= len(s.channels) {
		return api.DroppedNoWatch
	}
	outcome := api.Delivered
	for _, id := range s.channels[ci].wds {
		e := s.watchers[id]
		if e == nil {
			continue
		}
		item := api.WatcherEvent{
			Type: api.Notified,
			Event: api.Event{
				Path: e.path,
				Kind: api.KindOverflow,
				Mask: api.MaskQOverflow,
			},
		}
		if s.tryDeliver(pendingItem{id: id, item: item}) == api.QueueFull {
			outcome = api.QueueFull
		}
	}
	return outcome
}

// tryDeliver enqueues one resolved item, parking it under backpressure.
// While anything is parked, new items park behind it unconditionally so
// no record overtakes an earlier one.
func (s *Service) tryDeliver(p pendingItem) api.DeliveryOutcome {
	e, live := s.watchers[p.id]
	if !live {
		s.metrics.Inc(control.KeyDroppedNoWatch, 1)
		return api.DroppedNoWatch
	}
	if len(s.pending) > 0 {
		s.pending = append(s.pending, p)
		return api.QueueFull
	}
	if !e.deliver(p.item) {
		s.pending = append(s.pending, p)
		s.metrics.Inc(control.KeyQueueFull, 1)
		return api.QueueFull
	}
	s.metrics.Inc(control.KeyDelivered, 1)
	if p.removeAfter {
		// Kernel-initiated removal: clean end of stream, no RemoveWatch.
		s.removeEntry(e, api.ErrWatchEnded, false)
	}
	return api.Delivered
}

// flushPending retries parked deliveries in arrival order. Returns true
// when the list is empty and reading may resume.
func (s *Service) flushPending() bool {
	for len(s.pending) > 0 {
		p := s.pending[0]
		e, live := s.watchers[p.id]
		if !live {
			s.metrics.Inc(control.KeyDroppedNoWatch, 1)
			s.pending = s.pending[1:]
			continue
		}
		if !e.deliver(p.item) {
			return false // still saturated
		}
		s.metrics.Inc(control.KeyDelivered, 1)
		if p.removeAfter {
			s.removeEntry(e, api.ErrWatchEnded, false)
		}
		s.pending = s.pending[1:]
	}
	s.pending = nil
	return true
}
