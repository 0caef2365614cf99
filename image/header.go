// Package image describes the BitBox binary image header shared by the assembler (which
// writes it) and the loader/VM (which read it).
package image

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed header length in bytes.
const HeaderSize = 64

// Magic identifies a BitBox image: the bytes "BBVM".
var Magic = [4]byte{'B', 'B', 'V', 'M'}

// Header is the decoded form of the first 64 bytes of an image.
type Header struct {
	TextLength  uint32
	EntryOffset uint32
}

// Encode writes h into a freshly allocated 64-byte header.
func Encode(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.TextLength)
	binary.LittleEndian.PutUint32(buf[8:12], h.EntryOffset)
	return buf
}

// Decode validates and parses the header of an image: the magic must match, the image must
// be at least HeaderSize bytes, and the entry offset must be >= HeaderSize.
func Decode(img []byte) (Header, error) {
	if len(img) < HeaderSize {
		return Header{}, fmt.Errorf("image too short: %d bytes, need at least %d", len(img), HeaderSize)
	}
	if img[0] != Magic[0] || img[1] != Magic[1] || img[2] != Magic[2] || img[3] != Magic[3] {
		return Header{}, fmt.Errorf("bad magic: got %q, want %q", img[0:4], Magic[:])
	}
	h := Header{
		TextLength:  binary.LittleEndian.Uint32(img[4:8]),
		EntryOffset: binary.LittleEndian.Uint32(img[8:12]),
	}
	if h.EntryOffset < HeaderSize {
		return Header{}, fmt.Errorf("entry offset %d is inside the header (must be >= %d)", h.EntryOffset, HeaderSize)
	}
	if int(h.EntryOffset) >= len(img) {
		return Header{}, fmt.Errorf("entry offset %d is outside the image (length %d)", h.EntryOffset, len(img))
	}
	if HeaderSize+int(h.TextLength) != len(img) {
		return Header{}, fmt.Errorf("text length %d does not match image size %d", h.TextLength, len(img)-HeaderSize)
	}
	return h, nil
}
