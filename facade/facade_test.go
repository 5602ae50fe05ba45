//go:build linux

// File: facade/facade_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// End-to-end tests against real kernel descriptors: watch a temp
// directory, mutate it, observe the stream.

package facade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/service"
)

func startFacade(t *testing.T) *Inotify {
	t.Helper()
	ino, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ino.Start()
	t.Cleanup(func() { _ = ino.Shutdown() })
	return ino
}

func nextEvent(t *testing.T, w *service.Watcher) api.WatcherEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := w.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	return ev
}

// nextNotified skips lifecycle items.
func nextNotified(t *testing.T, w *service.Watcher) api.Event {
	t.Helper()
	for {
		ev := nextEvent(t, w)
		if ev.Type == api.Notified {
			return ev.Event
		}
	}
}

func TestInotify_WatchCreate(t *testing.T) {
	ino := startFacade(t)
	dir := t.TempDir()

	w, err := ino.Watch(dir, api.MaskCreate)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if ev := nextEvent(t, w); ev.Type != api.Started {
		t.Fatalf("Expected Started first, got %v", ev.Type)
	}

	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ev := nextNotified(t, w)
	if ev.Kind != api.KindCreate {
		t.Errorf("Expected Create, got %v (mask %s)", ev.Kind, ev.Mask)
	}
	if ev.Path != target {
		t.Errorf("Expected path %s, got %s", target, ev.Path)
	}
}

func TestInotify_RenameCookie(t *testing.T) {
	ino := startFacade(t)
	dir := t.TempDir()

	old := filepath.Join(dir, "old")
	if err := os.WriteFile(old, nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := ino.Watch(dir, api.MaskMove)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := os.Rename(old, filepath.Join(dir, "new")); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	from := nextNotified(t, w)
	to := nextNotified(t, w)
	if from.Kind != api.KindMoveFrom || to.Kind != api.KindMoveTo {
		t.Fatalf("Expected MoveFrom then MoveTo, got %v then %v", from.Kind, to.Kind)
	}
	if from.Cookie == 0 || from.Cookie != to.Cookie {
		t.Errorf("Expected matching non-zero cookies, got %d and %d", from.Cookie, to.Cookie)
	}
}

func TestInotify_Serve(t *testing.T) {
	ino := startFacade(t)
	dir := t.TempDir()

	w, err := ino.Watch(dir, api.MaskCreate)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	got := make(chan api.Event, 8)
	err = ino.Serve(w, api.EventHandlerFunc(func(ev api.WatcherEvent) error {
		if ev.Type == api.Notified {
			got <- ev.Event
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Kind != api.KindCreate {
			t.Errorf("Expected Create, got %v", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Handler never received the event")
	}
}

func TestInotify_WatchMissingPath(t *testing.T) {
	ino := startFacade(t)

	_, err := ino.Watch(filepath.Join(t.TempDir(), "absent"), api.MaskCreate)
	if err == nil {
		t.Fatalf("Expected registration error for missing path")
	}
	if api.CodeOf(err) != api.ErrCodeInvalidInput {
		t.Errorf("Expected invalid-input code, got %v", err)
	}
}

func TestInotify_DeleteEndsStream(t *testing.T) {
	ino := startFacade(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	w, err := ino.Watch(sub, api.MaskDeleteSelf)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := os.Remove(sub); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// DELETE_SELF, then the kernel's final IGNORED record, then a clean
	// end of stream.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, err := w.Next(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, api.ErrWatchEnded) {
			t.Fatalf("Expected ErrWatchEnded, got %v", err)
		}
		return
	}
}

func TestInotify_ShutdownEndsStreams(t *testing.T) {
	ino := startFacade(t)
	dir := t.TempDir()

	w, err := ino.Watch(dir, api.MaskCreate)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := ino.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, err := w.Next(ctx)
		if err == nil {
			continue // drain lifecycle items
		}
		if !errors.Is(err, api.ErrServiceClosed) {
			t.Errorf("Expected ErrServiceClosed, got %v", err)
		}
		break
	}

	if got := ino.Stats()["channels_open"]; got != int64(1) {
		t.Errorf("Expected one channel recorded, got %v", got)
	}
}
