package convolution

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// KernelKind is the numeric type of the configured kernel.
type KernelKind uint8

const (
	KindInteger KernelKind = iota
	KindFloat
)

func (k KernelKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// BufferStats counts kernel buffers the operator allocated and released.
// Borrowed caller memory never shows up here.
type BufferStats struct {
	Allocated int
	Released  int
}

// Live returns the number of owned buffers currently held.
func (s BufferStats) Live() int {
	return s.Allocated - s.Released
}

type weight interface {
	int | float32
}

// buffer is either owned by the operator or borrowed from the caller.
type buffer[T weight] interface {
	weights() []T
	release(stats *BufferStats)
}

type owned[T weight] struct {
	data []T
}

func (b *owned[T]) weights() []T { return b.data }

func (b *owned[T]) release(stats *BufferStats) {
	if b.data == nil {
		return
	}
	b.data = nil
	stats.Released++
}

// borrowed aliases caller memory; the caller may change it between runs.
type borrowed[T weight] struct {
	data []T
}

func (b *borrowed[T]) weights() []T { return b.data }

func (b *borrowed[T]) release(*BufferStats) {
	b.data = nil
}

// ensureOwned returns b when it is an owned buffer of length n, otherwise a
// freshly allocated one. A buffer that cannot be reused is released first.
func ensureOwned[T weight](b buffer[T], n int, stats *BufferStats) *owned[T] {
	if o, ok := b.(*owned[T]); ok && len(o.data) == n {
		return o
	}
	releaseBuffer(b, stats)
	stats.Allocated++
	return &owned[T]{data: make([]T, n)}
}

func releaseBuffer[T weight](b buffer[T], stats *BufferStats) {
	if b != nil {
		b.release(stats)
	}
}

func validateMask(n int, size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "mask size %dx%d", size.X, size.Y)
	}
	if n != size.X*size.Y {
		return errors.Wrapf(ErrInvalidArgument, "%d weights for %dx%d mask", n, size.X, size.Y)
	}
	return nil
}

// maxWeightSum bounds the sum of absolute integer weights so that an int64
// accumulator over samples of magnitude up to 2^31 cannot wrap.
const maxWeightSum = math.MaxInt64 >> 31

// checkWeightRange rejects integer weights whose sums could overflow the
// int64 accumulator.
func checkWeightRange(data []int) error {
	var sum int64
	for _, v := range data {
		w := int64(v)
		if w < -maxWeightSum || w > maxWeightSum {
			return errors.Wrapf(ErrInvalidArgument, "weight %d out of range", v)
		}
		if w < 0 {
			w = -w
		}
		if sum += w; sum > maxWeightSum {
			return errors.Wrapf(ErrInvalidArgument, "sum of absolute weights exceeds %d", int64(maxWeightSum))
		}
	}
	return nil
}

// fillMirror writes src[i]/divisor into dst.
func fillMirror(dst []float32, src []int, divisor int) {
	d := float32(divisor)
	for i, v := range src {
		dst[i] = float32(v) / d
	}
}

// floatWeightsFit reports whether integral float weights stay within
// maxWeightSum once converted.
func floatWeightsFit(data []float32) bool {
	var sum float64
	for _, v := range data {
		sum += math.Abs(float64(v))
	}
	return sum <= maxWeightSum
}

func isIntegral(data []float32) bool {
	for _, v := range data {
		f := float64(v)
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return false
		}
	}
	return true
}
