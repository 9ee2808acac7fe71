// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PeekFrame is the two-stage inbound verification of spec.md section 4.5:
// first confirm enough bytes have arrived for the header, then confirm
// enough have arrived for the payload the header declares. Only once
// both hold does the caller dispatch buf[:HdrSize+Length] to the
// type-specific Decode* function.
package wire

// PeekFrame reports whether buf holds at least one complete frame, and
// if so returns its header and the byte length of that frame
// (HdrSize+h.Length) so the caller can slice it off buf without parsing
// the payload twice.
func PeekFrame(buf []byte) (h Hdr, frameLen int, ok bool, err error) {
	if len(buf) < HdrSize {
		return Hdr{}, 0, false, nil
	}
	h, err = DecodeHdr(buf)
	if err != nil {
		return Hdr{}, 0, false, err
	}
	frameLen = HdrSize + int(h.Length)
	if len(buf) < frameLen {
		return h, frameLen, false, nil
	}
	return h, frameLen, true, nil
}
