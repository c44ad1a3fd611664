// Pixel storage depths and their numeric ranges
package core

import "math"

// Depth identifies the storage type of a single channel sample.
type Depth uint8

const (
	// Depth8u is unsigned 8-bit.
	Depth8u Depth = iota

	// Depth16u is unsigned 16-bit, the native depth of 16-bit grayscale files.
	Depth16u

	// Depth16s is signed 16-bit.
	Depth16s

	// Depth32s is signed 32-bit.
	Depth32s

	// Depth32f is single precision floating point.
	Depth32f

	// Depth64f is double precision floating point.
	Depth64f

	// DepthCount is the number of supported depths.
	DepthCount
)

// DepthInfo contains metadata about a depth.
type DepthInfo struct {
	Name           string
	BytesPerSample int
	IsFloat        bool
	Min            float64
	Max            float64
}

var depthInfoTable = [DepthCount]DepthInfo{
	Depth8u: {
		Name:           "8u",
		BytesPerSample: 1,
		Min:            0,
		Max:            math.MaxUint8,
	},
	Depth16u: {
		Name:           "16u",
		BytesPerSample: 2,
		Min:            0,
		Max:            math.MaxUint16,
	},
	Depth16s: {
		Name:           "16s",
		BytesPerSample: 2,
		Min:            math.MinInt16,
		Max:            math.MaxInt16,
	},
	Depth32s: {
		Name:           "32s",
		BytesPerSample: 4,
		Min:            math.MinInt32,
		Max:            math.MaxInt32,
	},
	Depth32f: {
		Name:           "32f",
		BytesPerSample: 4,
		IsFloat:        true,
		Min:            -math.MaxFloat32,
		Max:            math.MaxFloat32,
	},
	Depth64f: {
		Name:           "64f",
		BytesPerSample: 8,
		IsFloat:        true,
		Min:            -math.MaxFloat64,
		Max:            math.MaxFloat64,
	},
}

// Info returns the DepthInfo for this depth.
func (d Depth) Info() DepthInfo {
	if d >= DepthCount {
		return DepthInfo{Name: "unknown"}
	}
	return depthInfoTable[d]
}

// IsValid returns true if the depth is a known depth.
func (d Depth) IsValid() bool {
	return d < DepthCount
}

// IsFloat returns true for floating point depths.
func (d Depth) IsFloat() bool {
	return d.Info().IsFloat
}

func (d Depth) String() string {
	return d.Info().Name
}

// ParseDepth maps a depth name ("8u", "16s", "32f", ...) back to a Depth.
func ParseDepth(name string) (Depth, bool) {
	for d := Depth(0); d < DepthCount; d++ {
		if depthInfoTable[d].Name == name {
			return d, true
		}
	}
	return DepthCount, false
}

// Depths returns all supported depths in table order.
func Depths() []Depth {
	out := make([]Depth, 0, DepthCount)
	for d := Depth(0); d < DepthCount; d++ {
		out = append(out, d)
	}
	return out
}
