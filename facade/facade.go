// File: facade/facade.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Facade wiring the hioload-inotify subsystems: the kernel notification
// channels, the epoll reactor that wakes the loop on readability, the
// cooperative event loop driving the service, and an executor for
// callback-style consumers. Exposes unified API including explicit
// Shutdown for graceful teardown.

package facade

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/control"
	"github.com/momentics/hioload-inotify/core/concurrency"
	"github.com/momentics/hioload-inotify/internal/channel"
	"github.com/momentics/hioload-inotify/reactor"
	"github.com/momentics/hioload-inotify/service"
)

// Config holds all configurable parameters for the facade.
type Config struct {
	RingCapacity   int // per-watch event queue capacity
	BatchSize      int // max records handled per loop resumption
	ReadBufferSize int // per-channel read buffer (0 = codec default)
	Workers        int // executor workers for Serve callbacks (0 = NumCPU)
}

// DefaultConfig returns a baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		RingCapacity: 64,
		BatchSize:    32,
	}
}

// Option customizes facade construction.
type Option func(*Inotify)

// WithChannelOpener overrides the kernel channel factory. Used by tests
// and platforms providing their own descriptor source.
func WithChannelOpener(opener api.ChannelOpener) Option {
	return func(f *Inotify) {
		f.opener = opener
	}
}

// Inotify is the high-level entry point: it owns the service, its
// driving loop and the readiness reactor.
type Inotify struct {
	cfg     *Config
	opener  api.ChannelOpener
	svc     *service.Service
	loop    *concurrency.EventLoop
	rct     reactor.Reactor
	exec    *concurrency.Executor
	metrics *control.MetricsRegistry

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Ensure compile-time interface compliance.
var _ api.GracefulShutdown = (*Inotify)(nil)

// New assembles an Inotify facade. The first notification channel is
// opened lazily by the first Watch call.
func New(cfg *Config, opts ...Option) (*Inotify, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	f := &Inotify{
		cfg:     cfg,
		opener:  channel.New,
		metrics: control.NewMetricsRegistry(),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	rct, err := reactor.New()
	if err != nil {
		return nil, err
	}
	f.rct = rct

	svcOpts := []service.Option{
		service.WithRingCapacity(cfg.RingCapacity),
		service.WithMetrics(f.metrics),
		service.WithChannelHook(f.registerChannelFd),
	}
	if cfg.ReadBufferSize > 0 {
		svcOpts = append(svcOpts, service.WithReadBufferSize(cfg.ReadBufferSize))
	}
	f.svc = service.New(f.opener, svcOpts...)
	f.loop = concurrency.NewEventLoop(f.svc, cfg.BatchSize)
	f.svc.SetWaker(f.loop.Wake)
	f.exec = concurrency.NewExecutor(cfg.Workers)
	return f, nil
}

// registerChannelFd subscribes a newly opened channel descriptor for
// readability wakeups.
func (f *Inotify) registerChannelFd(fd uintptr) error {
	return f.rct.Register(fd, reactor.EventRead, func(uintptr, reactor.FDEventType) {
		f.loop.Wake()
	})
}

// Start launches the service loop and the reactor poller.
func (f *Inotify) Start() {
	f.startOnce.Do(func() {
		f.wg.Add(2)
		go func() {
			defer f.wg.Done()
			if err := f.loop.Run(); err != nil && !errors.Is(err, api.ErrServiceClosed) {
				log.Printf("hioload-inotify: service loop terminated: %v", err)
			}
		}()
		go func() {
			defer f.wg.Done()
			// Bounded poll timeout so shutdown is never stuck behind a
			// quiescent descriptor set.
			for {
				select {
				case <-f.stopCh:
					return
				default:
				}
				if err := f.rct.Poll(500); err != nil {
					return
				}
			}
		}()
	})
}

// Watch registers path for the event kinds in mask. Start must have been
// called; registration errors surface synchronously.
func (f *Inotify) Watch(path string, mask api.Mask) (*service.Watcher, error) {
	return f.svc.Watch(path, mask)
}

// Serve consumes one watcher on the executor, invoking h per stream
// item. Consumption stops at end of stream or on the first handler
// error, which also closes the watch.
func (f *Inotify) Serve(w *service.Watcher, h api.EventHandler) error {
	return f.exec.Submit(func() {
		for {
			ev, err := w.Next(context.Background())
			if err != nil {
				return
			}
			if herr := h.Handle(ev); herr != nil {
				_ = w.Close()
				return
			}
		}
	})
}

// Stats returns runtime delivery counters.
func (f *Inotify) Stats() map[string]any {
	return f.metrics.Stats()
}

// Shutdown stops the service (ending every stream with
// api.ErrServiceClosed), the reactor and the executor. Must be called
// after Start.
func (f *Inotify) Shutdown() error {
	f.stopOnce.Do(func() {
		_ = f.svc.Shutdown()
		f.loop.Stop()
		close(f.stopCh)
		_ = f.rct.Close()
		f.exec.Close()
		f.wg.Wait()
	})
	return nil
}
