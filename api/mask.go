// File: api/mask.go
// Package api - kernel event mask bits.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "strings"

// Mask is the kernel notification bitmask. The values match the kernel
// ABI: masks are passed through registration unchanged and come back
// verbatim on every record.
type Mask uint32

const (
	MaskAccess       Mask = 0x00000001 // file was accessed
	MaskModify       Mask = 0x00000002 // file was modified
	MaskAttrib       Mask = 0x00000004 // metadata changed
	MaskCloseWrite   Mask = 0x00000008 // writable fd closed
	MaskCloseNoWrite Mask = 0x00000010 // unwritable fd closed
	MaskOpen         Mask = 0x00000020 // file was opened
	MaskMovedFrom    Mask = 0x00000040 // renamed away, cookie pairs the rename
	MaskMovedTo      Mask = 0x00000080 // renamed in, cookie pairs the rename
	MaskCreate       Mask = 0x00000100 // child created in watched dir
	MaskDelete       Mask = 0x00000200 // child deleted from watched dir
	MaskDeleteSelf   Mask = 0x00000400 // watched target itself deleted
	MaskMoveSelf     Mask = 0x00000800 // watched target itself moved

	MaskUnmount   Mask = 0x00002000 // backing filesystem unmounted
	MaskQOverflow Mask = 0x00004000 // kernel queue overflowed, wd is -1
	MaskIgnored   Mask = 0x00008000 // watch dropped by the kernel; final record

	MaskOnlyDir    Mask = 0x01000000 // registration flag: target must be a dir
	MaskDontFollow Mask = 0x02000000 // registration flag: do not follow symlink
	MaskAdd        Mask = 0x20000000 // registration flag: OR into existing mask
	MaskIsDir      Mask = 0x40000000 // subject of the event is a directory
	MaskOneShot    Mask = 0x80000000 // registration flag: remove after one event
)

// Unions mirroring the kernel's convenience sets.
const (
	MaskMove  = MaskMovedFrom | MaskMovedTo
	MaskClose = MaskCloseWrite | MaskCloseNoWrite

	MaskAllEvents = MaskAccess | MaskModify | MaskAttrib | MaskClose |
		MaskOpen | MaskMove | MaskCreate | MaskDelete |
		MaskDeleteSelf | MaskMoveSelf
)

// Has reports whether every bit of m is set.
func (m Mask) Has(bits Mask) bool {
	return m&bits == bits
}

var maskNames = []struct {
	bit  Mask
	name string
}{
	{MaskAccess, "ACCESS"},
	{MaskModify, "MODIFY"},
	{MaskAttrib, "ATTRIB"},
	{MaskCloseWrite, "CLOSE_WRITE"},
	{MaskCloseNoWrite, "CLOSE_NOWRITE"},
	{MaskOpen, "OPEN"},
	{MaskMovedFrom, "MOVED_FROM"},
	{MaskMovedTo, "MOVED_TO"},
	{MaskCreate, "CREATE"},
	{MaskDelete, "DELETE"},
	{MaskDeleteSelf, "DELETE_SELF"},
	{MaskMoveSelf, "MOVE_SELF"},
	{MaskUnmount, "UNMOUNT"},
	{MaskQOverflow, "Q_OVERFLOW"},
	{MaskIgnored, "IGNORED"},
	{MaskIsDir, "ISDIR"},
}

// String renders the set bits as a pipe-joined list, e.g.
// "CREATE|ISDIR".
func (m Mask) String() string {
	if m == 0 {
		return "NONE"
	}
	var parts []string
	for _, mn := range maskNames {
		if m&mn.bit != 0 {
			parts = append(parts, mn.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}
