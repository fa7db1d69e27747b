package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector serializes a vector as a little-endian FLOAT32 blob, the layout
// FT.SEARCH expects for both stored hash fields and query PARAMS.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector is the inverse of EncodeVector; a trailing partial float is ignored.
func DecodeVector(b string) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(b[i*4 : i*4+4])))
	}
	return v
}
