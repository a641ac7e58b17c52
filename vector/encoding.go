package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode packs an embedding into the BLOB representation stored in SQLite: a
// little-endian sequence of IEEE 754 float32 values with no length prefix
// (the dimension is derived from the BLOB size on decode). A nil or empty
// vector encodes to nil, which maps to a NULL column for pages whose
// embedding generation failed.
func Encode(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, 0, len(vec)*4)
	for _, v := range vec {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

// Decode unpacks a BLOB produced by Encode. A nil or empty BLOB decodes to a
// nil vector.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not a multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
