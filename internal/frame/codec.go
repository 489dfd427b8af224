package frame

import (
	"encoding/binary"
	"math"
)

const valueWidth = 8

// Codec encodes a fixed number of float64 values per frame.
type Codec struct {
	Values int
}

func NewCodec(values int) Codec {
	return Codec{Values: values}
}

func (c Codec) FrameSize() int {
	return c.Values * valueWidth
}

// Encode writes vals into dst. Missing values are written as zero and
// surplus values are dropped so the frame width never changes.
func (c Codec) Encode(dst []byte, vals []float64) {
	for i := 0; i < c.Values; i++ {
		v := 0.0
		if i < len(vals) {
			v = vals[i]
		}
		binary.LittleEndian.PutUint64(dst[i*valueWidth:], math.Float64bits(v))
	}
}

func (c Codec) Decode(src []byte) []float64 {
	out := make([]float64, c.Values)
	c.DecodeInto(out, src)
	return out
}

func (c Codec) DecodeInto(dst []float64, src []byte) {
	n := c.Values
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*valueWidth:]))
	}
}
