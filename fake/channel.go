// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides a scripted notification channel with predictable descriptor
// assignment and byte-exact control over what each read returns.

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-inotify/api"
	"github.com/momentics/hioload-inotify/core/codec"
)

// Ensure compile-time interface compliance.
var _ api.NotifyChannel = (*Channel)(nil)

// Channel is a fake api.NotifyChannel. Reads pop scripted byte chunks;
// AddWatch assigns ascending descriptors, returning the same descriptor
// for a path that is already watched, the way the kernel collapses
// watches on one inode.
type Channel struct {
	mu      sync.Mutex
	nextWD  int32
	byPath  map[string]int32
	byWD    map[int32]string
	script  [][]byte
	removed []int32
	addErr  map[string]error
	readErr error
	closed  bool
}

// NewChannel creates an empty fake channel.
func NewChannel() *Channel {
	return &Channel{
		byPath: make(map[string]int32),
		byWD:   make(map[int32]string),
		addErr: make(map[string]error),
	}
}

// AddWatch implements api.NotifyChannel.AddWatch.
func (c *Channel) AddWatch(path string, mask api.Mask) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, fmt.Errorf("fake channel is closed")
	}
	if err := c.addErr[path]; err != nil {
		return 0, err
	}
	if wd, ok := c.byPath[path]; ok {
		return wd, nil // same inode, same descriptor
	}
	c.nextWD++
	c.byPath[path] = c.nextWD
	c.byWD[c.nextWD] = path
	return c.nextWD, nil
}

// RemoveWatch implements api.NotifyChannel.RemoveWatch.
func (c *Channel) RemoveWatch(wd int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, wd)
	if path, ok := c.byWD[wd]; ok {
		delete(c.byWD, wd)
		delete(c.byPath, path)
	}
	return nil
}

// Read implements api.NotifyChannel.Read: it pops the next scripted
// chunk, re-queueing any bytes that do not fit in buf. An empty script
// reports would-block as (0, nil).
func (c *Channel) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		err := c.readErr
		c.readErr = nil
		return 0, err
	}
	if len(c.script) == 0 {
		return 0, nil // would block
	}
	chunk := c.script[0]
	n := copy(buf, chunk)
	if n < len(chunk) {
		c.script[0] = chunk[n:]
	} else {
		c.script = c.script[1:]
	}
	return n, nil
}

// Fd implements api.NotifyChannel.Fd.
func (c *Channel) Fd() uintptr {
	return 0
}

// Close implements api.NotifyChannel.Close.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// PushRaw appends one scripted read result verbatim.
func (c *Channel) PushRaw(b []byte) {
	c.mu.Lock()
	c.script = append(c.script, b)
	c.mu.Unlock()
}

// PushEvent encodes one record and appends it as a read result.
func (c *Channel) PushEvent(ev api.RawEvent) {
	c.PushRaw(codec.Encode(ev))
}

// FailRead makes the next Read return err (fatal to the channel).
func (c *Channel) FailRead(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

// FailAddWatch makes AddWatch for path fail with err.
func (c *Channel) FailAddWatch(path string, err error) {
	c.mu.Lock()
	c.addErr[path] = err
	c.mu.Unlock()
}

// WD returns the descriptor assigned to path, or 0.
func (c *Channel) WD(path string) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byPath[path]
}

// Removed returns the descriptors passed to RemoveWatch.
func (c *Channel) Removed() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int32, len(c.removed))
	copy(out, c.removed)
	return out
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SequenceOpener returns an api.ChannelOpener handing out chans in
// order, failing once they are exhausted.
func SequenceOpener(chans ...*Channel) api.ChannelOpener {
	i := 0
	return func() (api.NotifyChannel, error) {
		if i >= len(chans) {
			return nil, fmt.Errorf("fake opener: no more channels (asked for %d)", i+1)
		}
		ch := chans[i]
		i++
		return ch, nil
	}
}
