// Package data holds the in-memory value types cached per segment and field:
// quantized sparse vectors and clustered postings.
package data

import (
	"sort"

	"github.com/hupe1980/sparsevec/internal/ramusage"
	"github.com/hupe1980/sparsevec/quantization"
)

// Item is one (token, quantized weight) pair of a sparse vector.
type Item struct {
	Token  uint16
	Weight byte
}

// SparseVector is an immutable sparse vector with byte-quantized weights.
// Tokens are kept sorted so lookups and merges can scan in order.
type SparseVector struct {
	tokens  []uint16
	weights []byte
}

// NewSparseVector builds a SparseVector from items. Items are sorted by token;
// the input slice is not retained.
func NewSparseVector(items []Item) *SparseVector {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Token < sorted[j].Token })

	v := &SparseVector{
		tokens:  make([]uint16, len(sorted)),
		weights: make([]byte, len(sorted)),
	}
	for i, it := range sorted {
		v.tokens[i] = it.Token
		v.weights[i] = it.Weight
	}
	return v
}

// Size returns the number of (token, weight) pairs.
func (v *SparseVector) Size() int {
	if v == nil {
		return 0
	}
	return len(v.tokens)
}

// At returns the i-th pair in token order.
func (v *SparseVector) At(i int) (token uint16, weight byte) {
	return v.tokens[i], v.weights[i]
}

// Weight returns the quantized weight for token, or 0 when absent.
func (v *SparseVector) Weight(token uint16) byte {
	i := sort.Search(len(v.tokens), func(i int) bool { return v.tokens[i] >= token })
	if i < len(v.tokens) && v.tokens[i] == token {
		return v.weights[i]
	}
	return 0
}

// ToDense expands the vector into a dense byte array indexed by token.
// The array is sized to the highest token present.
func (v *SparseVector) ToDense() []byte {
	if v.Size() == 0 {
		return nil
	}
	dense := make([]byte, int(v.tokens[len(v.tokens)-1])+1)
	for i, t := range v.tokens {
		dense[t] = v.weights[i]
	}
	return dense
}

// DotProduct computes the unsigned integer dot product against a dense vector.
// Tokens beyond the dense vector's length contribute nothing.
func (v *SparseVector) DotProduct(dense []byte) int {
	score := 0
	for i, t := range v.tokens {
		if int(t) >= len(dense) {
			break
		}
		score += quantization.MultiplyUnsigned(v.weights[i], dense[t])
	}
	return score
}

// RamBytesUsed estimates the retained memory of this vector.
func (v *SparseVector) RamBytesUsed() int64 {
	if v == nil {
		return 0
	}
	return ramusage.Align(ramusage.PointerBytes*2) +
		ramusage.SliceBytes(len(v.tokens), 2) +
		ramusage.SliceBytes(len(v.weights), 1)
}
