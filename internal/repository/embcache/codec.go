package embcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Cached entries are laid out as
//
//	[1 byte format][4 bytes dims, little endian][dims * float32, little endian]
//
// Entries written by another format version read back as a miss.
const (
	entryFormat     byte = 1
	entryHeaderSize      = 5
)

var errBadEntry = errors.New("bad embedding cache entry")

func encodeEntry(vec []float32) []byte {
	buf := make([]byte, entryHeaderSize+len(vec)*4)
	buf[0] = entryFormat
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(vec))) //nolint:gosec // vector lengths are small
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[entryHeaderSize+i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEntry(data []byte) ([]float32, error) {
	if len(data) < entryHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errBadEntry, len(data))
	}
	if data[0] != entryFormat {
		return nil, fmt.Errorf("%w: format %d", errBadEntry, data[0])
	}
	dims := int(binary.LittleEndian.Uint32(data[1:]))
	if dims == 0 || len(data) != entryHeaderSize+dims*4 {
		return nil, fmt.Errorf("%w: %d dims in %d bytes", errBadEntry, dims, len(data))
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[entryHeaderSize+i*4:]))
	}
	return vec, nil
}
