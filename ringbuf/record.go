// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Record header encode/decode and the mirrored-region read/write helpers
// shared by push.go and shift.go. A record's logical offset is reduced to
// a physical index in [0,size) exactly once per record (physOff); every
// sub-span of that record (header, payload) is then addressed by plain
// arithmetic off that single physical index, which may legally run past
// `size` into the shadow window without wrapping back to a low address —
// that contiguity is the entire point of the double mapping.
package ringbuf

import "encoding/binary"

// hdrSize is the fixed prefix of every record slot: a 4-byte payload
// length followed by the 8-byte reader-pending/EOF control word of
// spec.md section 3.1.
const hdrSize = 12

// physOff reduces a monotonic logical byte offset to its physical index
// in the primary window [0, size).
func (r *Ring) physOff(logical uint64) int {
	return int(logical % r.size)
}

// duplicateSpan copies the primary-window portion of the n-byte span
// starting at physical index po into its shadow window. On Linux this is
// a no-op: the memfd double mapping already aliases the two windows.
func (r *Ring) duplicateSpan(po, n int) {
	if !r.mirror.needsDuplicate() {
		return
	}
	primary := n
	if po+primary > int(r.size) {
		primary = int(r.size) - po
	}
	if primary <= 0 {
		return
	}
	shadow := po + int(r.size)
	copy(r.data[shadow:shadow+primary], r.data[po:po+primary])
}

// writeHeader writes the length and control word of the record whose
// physical start index is po.
func (r *Ring) writeHeader(po int, length uint32, ctrl uint64) {
	var buf [hdrSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], length)
	binary.LittleEndian.PutUint64(buf[4:hdrSize], ctrl)
	copy(r.data[po:po+hdrSize], buf[:])
	r.duplicateSpan(po, hdrSize)
}

// readHeader reads the length and control word of the record whose
// physical start index is po.
func (r *Ring) readHeader(po int) (length uint32, ctrl uint64) {
	sp := r.data[po : po+hdrSize]
	length = binary.LittleEndian.Uint32(sp[0:4])
	ctrl = binary.LittleEndian.Uint64(sp[4:hdrSize])
	return
}

// payload returns a zero-copy slice of the payload for the record whose
// physical start index is po, given its header length.
func (r *Ring) payload(po int, length uint32) []byte {
	start := po + hdrSize
	return r.data[start : start+int(length)]
}

// duplicatePayload mirrors the payload bytes of the record whose
// physical start index is po into the shadow window; used after a caller
// has written directly into the zero-copy slice returned by Push.
func (r *Ring) duplicatePayload(po int, length uint32) {
	r.duplicateSpan(po+hdrSize, int(length))
}

func slotSize(payloadLen int) uint64 {
	return uint64(align(hdrSize + payloadLen))
}
