// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import "errors"

var (
	ErrShortHeader  = errors.New("wire: buffer shorter than frame header")
	ErrShortPayload = errors.New("wire: buffer shorter than declared payload length")
	ErrWrongType    = errors.New("wire: frame type does not match decoder")
	ErrMalformed    = errors.New("wire: malformed field in payload")
)
