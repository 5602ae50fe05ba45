//go:build !linux
// +build !linux

// File: internal/channel/channel_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package channel

import (
	"github.com/momentics/hioload-inotify/api"
)

// New returns an error for unsupported platforms.
func New() (api.NotifyChannel, error) {
	return nil, api.ErrNotSupported
}
