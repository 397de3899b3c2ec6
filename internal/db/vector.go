package db

import (
	"encoding/binary"
	"math"
)

// EncodeVectorFP32 encodes a float32 vector as little-endian FP32 bytes,
// the layout FT.SEARCH expects for HASH vector fields and BLOB params.
func EncodeVectorFP32(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}

// DecodeVectorFP32 decodes little-endian FP32 bytes back into a vector.
func DecodeVectorFP32(data string) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(data[i*4 : i*4+4])))
	}
	return vec
}
