//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux mirrored-mapping backend: the ring's data region is backed by a
// memfd and mapped twice, back-to-back, so that any record beginning in
// the first half can be read as one flat span even when it wraps past
// the end of the region. Grounded on internal/transport's io_uring
// backend, which already reaches past the golang.org/x/sys/unix wrappers
// to unix.Syscall6 with a raw syscall number when the package has no
// higher-level helper (there unix.SYS_IO_URING_SETUP, here unix.SYS_MMAP
// for the MAP_FIXED remap unix.Mmap cannot express).

package ringbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type mirror struct {
	fd   int
	size int
	base []byte // size*2 bytes; second half aliases the first via memfd
}

func newMirror(size int) (*mirror, error) {
	fd, err := unix.MemfdCreate("ringbuf", 0)
	if err != nil {
		return nil, fmt.Errorf("ringbuf: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ringbuf: ftruncate: %w", err)
	}

	// Reserve a contiguous 2*size region so the two fixed mappings below
	// land back to back.
	anon, err := unix.Mmap(-1, 0, size*2, unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ringbuf: reserve mapping: %w", err)
	}

	base := uintptr(unsafe.Pointer(&anon[0]))
	if err := mmapFixed(fd, base, size); err != nil {
		unix.Munmap(anon)
		unix.Close(fd)
		return nil, err
	}
	if err := mmapFixed(fd, base+uintptr(size), size); err != nil {
		unix.Munmap(anon)
		unix.Close(fd)
		return nil, err
	}

	return &mirror{fd: fd, size: size, base: anon}, nil
}

// mmapFixed replaces the PROT_NONE reservation at addr with a MAP_FIXED
// shared mapping of fd, so both halves alias the same physical pages.
func mmapFixed(fd int, addr uintptr, size int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return fmt.Errorf("ringbuf: mmap MAP_FIXED at %#x: %v", addr, errno)
	}
	return nil
}

// view returns the full 2*size backing slice; offsets in [0,size) and
// their mirrored counterparts in [size,2*size) alias the same memory, so
// callers never need to special-case a record that straddles the seam.
func (m *mirror) view() []byte {
	return m.base[:2*m.size]
}

// needsDuplicate reports whether writers must manually duplicate bytes
// into the mirror half. On Linux the memfd double-mapping makes this
// automatic, so writers only ever touch the primary half.
func (m *mirror) needsDuplicate() bool {
	return false
}

func (m *mirror) close() error {
	if m.base != nil {
		_ = unix.Munmap(m.base)
	}
	if m.fd >= 0 {
		_ = unix.Close(m.fd)
	}
	return nil
}
