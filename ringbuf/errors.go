// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for the ringbuf package.

package ringbuf

import "errors"

var (
	// ErrInvalidSize indicates a non-power-of-two or zero ring size.
	ErrInvalidSize = errors.New("ringbuf: size must be a non-zero power of two")

	// ErrRecordTooLarge indicates a requested record exceeds the ring's size.
	ErrRecordTooLarge = errors.New("ringbuf: record exceeds ring capacity")

	// ErrFull indicates the ring has no room for the requested record.
	ErrFull = errors.New("ringbuf: full")

	// ErrEmpty indicates there is no record available to shift.
	ErrEmpty = errors.New("ringbuf: empty")

	// ErrEndOfFile indicates the ring is closed for further reads.
	ErrEndOfFile = errors.New("ringbuf: end of file")

	// ErrNoReaders is returned by Attach on a ring not opened multi-reader,
	// which has no reader set to join. A multi-reader ring with zero
	// attached readers is reported by WriteStatus as StatusNotReady, not
	// by this error.
	ErrNoReaders = errors.New("ringbuf: no attached readers")

	// ErrTooManyReaders indicates MaxReaders concurrent attachments.
	ErrTooManyReaders = errors.New("ringbuf: too many attached readers")

	// ErrNotAttached indicates Shift/Detach was called without Attach.
	ErrNotAttached = errors.New("ringbuf: reader not attached")
)
