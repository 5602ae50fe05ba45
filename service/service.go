// File: service/service.go
// Package service implements the notification-channel multiplexer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service owns the raw notification descriptors and the watch table. It
// is a cooperative poller: one Poll call is one resumption, with strict
// per-cycle ordering — drain commands, flush parked deliveries, read,
// decode, dispatch. Nothing outside Poll ever touches the table; handles
// communicate through the command inbox.
//
// A watch on an inode already watched through the same channel collapses
// to the same kernel descriptor. The service resolves the collision by
// migrating the older watch to the next channel (opened on demand) and
// emitting Restarted on its stream.

package service

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/control"
	"github.com/momentics/hioload-inotify/core/codec"
)

// Ensure compile-time interface compliance.
var (
	_ api.Poller           = (*Service)(nil)
	_ api.GracefulShutdown = (*Service)(nil)
)

// Service multiplexes kernel notification channels across independently
// registered watches.
type Service struct {
	opener  api.ChannelOpener
	onOpen  func(fd uintptr) error // readiness registration hook
	waker   atomic.Value           // func(): resumes the driving loop
	metrics *control.MetricsRegistry

	ringCap     int
	readBufSize int

	inbox  *inbox
	nextID atomic.Uint64

	// Loop-owned state. Mutated only inside Poll.
	channels []*channelState
	watchers map[WatcherID]*entry
	pending  []pendingItem
	closed   bool

	closeErr error         // set before doneCh closes
	doneCh   chan struct{} // closed once the service terminates
}

// Option customizes service construction.
type Option func(*Service)

// WithRingCapacity sets the per-watch queue capacity (rounded up to a
// power of two).
func WithRingCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ringCap = n
		}
	}
}

// WithReadBufferSize sets the per-channel read buffer size.
func WithReadBufferSize(n int) Option {
	return func(s *Service) {
		if n >= codec.HeaderSize+codec.MaxNameLen {
			s.readBufSize = n
		}
	}
}

// WithChannelHook installs a callback invoked with the descriptor of
// every channel the service opens, used to register readiness wakeups.
func WithChannelHook(fn func(fd uintptr) error) Option {
	return func(s *Service) {
		s.onOpen = fn
	}
}

// WithMetrics shares an external metrics registry.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(s *Service) {
		s.metrics = mr
	}
}

// New creates a service over channels produced by opener. The first
// channel is opened lazily on the first registration.
func New(opener api.ChannelOpener, opts ...Option) *Service {
	s := &Service{
		opener:      opener,
		metrics:     control.NewMetricsRegistry(),
		ringCap:     64,
		readBufSize: codec.HeaderSize + codec.MaxNameLen,
		inbox:       newInbox(),
		watchers:    make(map[WatcherID]*entry),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.RegisterDebugProbe("inbox_depth", func() any { return s.inbox.size() })
	return s
}

// SetWaker installs the function that resumes the driving loop. Must be
// set before the first Watch call.
func (s *Service) SetWaker(fn func()) {
	s.waker.Store(fn)
}

// Metrics exposes the delivery counters.
func (s *Service) Metrics() *control.MetricsRegistry {
	return s.metrics
}

// Done is closed when the service has terminated.
func (s *Service) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns the terminal error after Done is closed.
func (s *Service) Err() error {
	select {
	case <-s.doneCh:
		return s.closeErr
	default:
		return nil
	}
}

func (s *Service) wake() {
	if v := s.waker.Load(); v != nil {
		v.(func())()
	}
}

// commands

type registerCmd struct {
	id    WatcherID
	path  string
	mask  api.Mask
	reply chan registerReply
}

type registerReply struct {
	e   *entry
	err error
}

type deregisterCmd struct {
	id WatcherID
}

type shutdownCmd struct{}

// Watch registers path for the event kinds in mask and returns the
// per-watch event stream. Registration errors (missing path, permission,
// watch limit) are surfaced here, synchronously. The stream's first item
// is Started.
func (s *Service) Watch(path string, mask api.Mask) (*Watcher, error) {
	select {
	case <-s.doneCh:
		return nil, s.closeErr
	default:
	}

	cmd := registerCmd{
		id:    WatcherID(s.nextID.Add(1)),
		path:  path,
		mask:  mask,
		reply: make(chan registerReply, 1),
	}
	s.inbox.push(cmd)
	s.wake()

	select {
	case r := <-cmd.reply:
		if r.err != nil {
			return nil, r.err
		}
		return newWatcher(s, r.e), nil
	case <-s.doneCh:
		// The loop may have answered while terminating.
		select {
		case r := <-cmd.reply:
			if r.err != nil {
				return nil, r.err
			}
			return newWatcher(s, r.e), nil
		default:
			return nil, s.closeErr
		}
	}
}

// Shutdown requests orderly termination: every outstanding stream ends
// with ErrServiceClosed. Blocks until the loop processes the request, so
// the service must be actively polled.
func (s *Service) Shutdown() error {
	s.inbox.push(shutdownCmd{})
	s.wake()
	<-s.doneCh
	return nil
}

// Poll is one cooperative resumption: drain commands, flush parked
// deliveries, then read/decode/dispatch up to maxEvents records. A zero
// count with nil error means nothing was ready. A non-nil error is
// terminal; every live stream has already been ended with it.
func (s *Service) Poll(maxEvents int) (int, error) {
	if s.closed {
		return 0, s.closeErr
	}
	if maxEvents <= 0 {
		maxEvents = 16
	}

	handled := s.drainCommands()
	if s.closed {
		return handled, s.closeErr
	}

	// Backpressure: parked deliveries go out before any new read, and a
	// still-saturated queue stalls the whole read cycle.
	if !s.flushPending() {
		return handled, nil
	}

	for ci := 0; ci < len(s.channels) && handled < maxEvents; ci++ {
		n, err := s.pollChannel(ci, maxEvents-handled)
		handled += n
		if err != nil {
			s.terminate(err)
			return handled, err
		}
		if len(s.pending) > 0 {
			break // stalled mid-batch
		}
	}
	return handled, nil
}

// drainCommands applies every queued registration/removal request,
// keeping the table consistent with in-flight records before decoding.
func (s *Service) drainCommands() int {
	handled := 0
	for {
		cmd, ok := s.inbox.pop()
		if !ok {
			return handled
		}
		handled++
		switch c := cmd.(type) {
		case registerCmd:
			s.handleRegister(c)
		case deregisterCmd:
			s.handleDeregister(c.id)
		case shutdownCmd:
			s.terminate(api.ErrServiceClosed)
			return handled
		}
	}
}

// pollChannel reads and dispatches records from one channel until it
// would block, the budget is spent, or backpressure parks a delivery.
func (s *Service) pollChannel(ci int, budget int) (int, error) {
	cs := s.channels[ci]
	handled := 0
	for handled < budget {
		n, err := cs.ch.Read(cs.buf[cs.rest:])
		if err != nil {
			return handled, fmt.Errorf("notification channel %d: %w", ci, err)
		}
		if n == 0 {
			break // no event ready
		}

		events, rest, derr := codec.Decode(cs.buf[:cs.rest+n])
		// Carry the unconsumed suffix to the front of the persistent
		// buffer for the next read.
		cs.rest = copy(cs.buf, rest)

		for _, raw := range events {
			s.dispatch(ci, raw)
			handled++
		}
		if derr != nil {
			return handled, api.NewError(api.ErrCodeMalformed,
				"notification stream desynchronized").WithCause(derr)
		}
		if len(s.pending) > 0 {
			break
		}
	}
	return handled, nil
}

// handleRegister creates the entry and binds it to a channel, opening
// additional channels when the target inode is already watched.
func (s *Service) handleRegister(c registerCmd) {
	e := newEntry(c.id, c.path, c.mask, s.ringCap)
	if err := s.addWatch(e, 0); err != nil {
		c.reply <- registerReply{err: err}
		return
	}
	s.watchers[e.id] = e
	s.metrics.Set(control.KeyWatchesLive, int64(len(s.watchers)))
	c.reply <- registerReply{e: e}
}

// addWatch binds e to channel ci. When the kernel returns a descriptor
// already owned by an older watch (same inode), the new watch takes the
// descriptor and the older one migrates to channel ci+1 with a Restarted
// lifecycle event. Events may be lost in the migration window and the
// re-added watch may track a different inode under the same path.
func (s *Service) addWatch(e *entry, ci int) error {
	cs, err := s.channelAt(ci)
	if err != nil {
		return err
	}

	wd, err := cs.ch.AddWatch(e.path, e.mask&^api.MaskAdd)
	if err != nil {
		return err
	}

	displacedID, displaced := cs.wds[wd]
	e.wd = wd
	e.chanIdx = ci
	cs.wds[wd] = e.id

	if ci == 0 {
		e.deliver(api.WatcherEvent{Type: api.Started})
	} else {
		s.tryDeliver(pendingItem{id: e.id, item: api.WatcherEvent{Type: api.Restarted}})
	}

	if displaced && displacedID != e.id {
		if old, live := s.watchers[displacedID]; live {
			if merr := s.addWatch(old, ci+1); merr != nil {
				// The displaced watch lost its kernel registration and
				// cannot be re-homed: error end of stream for it alone.
				delete(s.watchers, displacedID)
				old.terminate(merr)
				s.metrics.Set(control.KeyWatchesLive, int64(len(s.watchers)))
			}
		}
	}
	return nil
}

// channelAt returns channel ci, opening channels up to and including ci.
func (s *Service) channelAt(ci int) (*channelState, error) {
	for len(s.channels) <= ci {
		if s.opener == nil {
			return nil, api.NewError(api.ErrCodeInternal, "no channel opener configured")
		}
		ch, err := s.opener()
		if err != nil {
			return nil, err
		}
		if s.onOpen != nil {
			if err := s.onOpen(ch.Fd()); err != nil {
				_ = ch.Close()
				return nil, err
			}
		}
		s.channels = append(s.channels, &channelState{
			ch:  ch,
			wds: make(map[int32]WatcherID),
			buf: make([]byte, s.readBufSize),
		})
		s.metrics.Set(control.KeyChannelsOpen, int64(len(s.channels)))
	}
	return s.channels[ci], nil
}

// handleDeregister removes one watch. Idempotent: a second request for
// the same id, or a request racing a kernel-initiated removal, is a
// no-op.
func (s *Service) handleDeregister(id WatcherID) {
	e, live := s.watchers[id]
	if !live {
		return
	}
	s.removeEntry(e, api.ErrWatchEnded, true)
}

// terminate ends the service: the shared channel cannot be partially
// healthy, so every outstanding stream ends with err. Queued register
// commands are answered with the same error.
func (s *Service) terminate(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeErr = err

	for _, e := range s.watchers {
		e.terminate(err)
	}
	s.watchers = make(map[WatcherID]*entry)
	s.pending = nil

	for _, cs := range s.channels {
		_ = cs.ch.Close()
	}

	for {
		cmd, ok := s.inbox.pop()
		if !ok {
			break
		}
		if rc, isReg := cmd.(registerCmd); isReg {
			rc.reply <- registerReply{err: err}
		}
	}

	s.metrics.Set(control.KeyWatchesLive, 0)
	close(s.doneCh)
}
