package db

import (
	"encoding/binary"
	"math"
)

// VectorField is the HASH field that holds the raw FLOAT32 vector.
const VectorField = "__vector"

// VectorToBytes serializes a vector as FLOAT32 little-endian, the layout
// FT.SEARCH expects for both PARAMS blobs and HASH vector fields.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BytesToVector decodes a HASH vector field. It returns nil for malformed input.
func BytesToVector(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
