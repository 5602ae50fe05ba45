//go:build linux
// +build linux

// internal/channel/channel_linux.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux inotify implementation of api.NotifyChannel. The descriptor is
// opened non-blocking; a read with nothing ready reports would-block as
// (0, nil), never as an error.

package channel

import (
	"fmt"

	"github.com/momentics/hioload-inotify/api"
	"golang.org/x/sys/unix"
)

type inotifyChannel struct {
	fd int
}

// New opens a non-blocking inotify descriptor.
func New() (api.NotifyChannel, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	return &inotifyChannel{fd: fd}, nil
}

// AddWatch registers path and returns the kernel watch descriptor.
func (c *inotifyChannel) AddWatch(path string, mask api.Mask) (int32, error) {
	wd, err := unix.InotifyAddWatch(c.fd, path, uint32(mask))
	if err != nil {
		return 0, classify(err).
			WithContext("path", path).
			WithContext("mask", mask.String())
	}
	return int32(wd), nil
}

// RemoveWatch deregisters a watch descriptor.
func (c *inotifyChannel) RemoveWatch(wd int32) error {
	if _, err := unix.InotifyRmWatch(c.fd, uint32(wd)); err != nil {
		return classify(err).WithContext("wd", wd)
	}
	return nil
}

// Read performs one non-blocking read of raw records into buf.
func (c *inotifyChannel) Read(buf []byte) (int, error) {
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return 0, nil // no event ready
		}
		return 0, fmt.Errorf("inotify read: %w", err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Fd exposes the descriptor for readiness registration.
func (c *inotifyChannel) Fd() uintptr {
	return uintptr(c.fd)
}

// Close releases the descriptor and all watches on it.
func (c *inotifyChannel) Close() error {
	return unix.Close(c.fd)
}

// classify maps errno values to structured registration errors.
func classify(err error) *api.Error {
	code := api.ErrCodeInternal
	if errno, ok := err.(unix.Errno); ok {
		switch errno {
		case unix.EINVAL, unix.EACCES, unix.EBADF, unix.EFAULT,
			unix.ENAMETOOLONG, unix.ENOENT, unix.ENOTDIR:
			code = api.ErrCodeInvalidInput
		case unix.EMFILE, unix.ENOMEM, unix.ENOSPC:
			code = api.ErrCodeResourceShortage
		}
	}
	return api.NewError(code, "inotify registration failed").WithCause(err)
}
