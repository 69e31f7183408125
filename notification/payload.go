// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"encoding/binary"
	"math/bits"
	"unicode/utf16"

	uuid "github.com/satori/go.uuid"
)

// Size of a host pointer; handle fields inside broadcast structures are pointer aligned
const pointerSize = bits.UintSize / 8

// payload is a bounds checked little endian view over a copied host structure.  Every accessor
// reports false rather than panicking when the structure is truncated.
type payload []byte

func (p payload) uint16At(offset int) (uint16, bool) {
	if offset < 0 || offset+2 > len(p) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(p[offset:]), true
}

func (p payload) uint32At(offset int) (uint32, bool) {
	if offset < 0 || offset+4 > len(p) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(p[offset:]), true
}

func (p payload) int32At(offset int) (int32, bool) {
	v, ok := p.uint32At(offset)
	return int32(v), ok
}

func (p payload) uint64At(offset int) (uint64, bool) {
	if offset < 0 || offset+8 > len(p) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(p[offset:]), true
}

func (p payload) pointerAt(offset int) (uint64, bool) {
	if pointerSize == 4 {
		v, ok := p.uint32At(offset)
		return uint64(v), ok
	}
	return p.uint64At(offset)
}

func (p payload) guidAt(offset int) (uuid.UUID, bool) {
	if offset < 0 || offset > len(p) {
		return uuid.Nil, false
	}
	return GUIDFromBytes(p[offset:])
}

// utf16StringAt reads a NUL terminated UTF-16 string.  A missing terminator ends the string at
// the end of the payload.
func (p payload) utf16StringAt(offset int) (string, bool) {
	if offset < 0 || offset >= len(p) {
		return "", false
	}
	var chars []uint16
	for i := offset; i+1 < len(p); i += 2 {
		c := binary.LittleEndian.Uint16(p[i:])
		if c == 0 {
			break
		}
		chars = append(chars, c)
	}
	return string(utf16.Decode(chars)), true
}

// encodeUTF16 returns s as NUL terminated little endian UTF-16
func encodeUTF16(s string) []byte {
	chars := utf16.Encode([]rune(s))
	b := make([]byte, 2*(len(chars)+1))
	for i, c := range chars {
		binary.LittleEndian.PutUint16(b[2*i:], c)
	}
	return b
}

func alignUp(offset, alignment int) int {
	return (offset + alignment - 1) &^ (alignment - 1)
}
