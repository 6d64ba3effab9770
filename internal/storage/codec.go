package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hyperjump/internmatch/internal/keyword"
)

// encodeIndices packs column indices as little-endian uint32.
func encodeIndices(idx []int) []byte {
	if len(idx) == 0 {
		return nil
	}
	b := make([]byte, 4*len(idx))
	for i, v := range idx {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	return b
}

// encodeValues packs weights as little-endian float64.
func encodeValues(vals []float64) []byte {
	if len(vals) == 0 {
		return nil
	}
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func decodeSparse(indices, values []byte) (keyword.SparseVector, error) {
	if len(indices)%4 != 0 || len(values)%8 != 0 || len(indices)/4 != len(values)/8 {
		return keyword.SparseVector{}, fmt.Errorf("corrupt lexical vector: %d index bytes, %d value bytes", len(indices), len(values))
	}
	n := len(indices) / 4
	v := keyword.SparseVector{Indices: make([]int, n), Values: make([]float64, n)}
	for i := 0; i < n; i++ {
		v.Indices[i] = int(binary.LittleEndian.Uint32(indices[i*4:]))
		v.Values[i] = math.Float64frombits(binary.LittleEndian.Uint64(values[i*8:]))
	}
	return v, nil
}
