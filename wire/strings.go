// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import "encoding/binary"

// putString appends a u16-length-prefixed string to buf.
func putString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

// getString reads a u16-length-prefixed string from the front of buf,
// returning the string and the remaining bytes.
func getString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, ErrMalformed
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, ErrMalformed
	}
	return string(buf[:n]), buf[n:], nil
}

// ID is the 8-byte host identifier of spec.md section 3.3, ordered
// lexicographically for election ranking.
type ID [8]byte

func (id ID) Less(other ID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}
