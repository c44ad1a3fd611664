package core

import "math"

// FloatSaturator returns a conversion from float64 to T. Integer targets are
// clamped to their representable range and truncated toward zero; NaN maps to 0.
// Float targets convert directly.
func FloatSaturator[T Pixel]() func(float64) T {
	var zero T
	var fn any
	switch any(zero).(type) {
	case uint8:
		fn = func(v float64) uint8 { return uint8(clampFloat(v, 0, math.MaxUint8)) }
	case uint16:
		fn = func(v float64) uint16 { return uint16(clampFloat(v, 0, math.MaxUint16)) }
	case int16:
		fn = func(v float64) int16 { return int16(clampFloat(v, math.MinInt16, math.MaxInt16)) }
	case int32:
		fn = func(v float64) int32 { return int32(clampFloat(v, math.MinInt32, math.MaxInt32)) }
	case float32:
		fn = func(v float64) float32 { return float32(v) }
	case float64:
		fn = func(v float64) float64 { return v }
	}
	return fn.(func(float64) T)
}

// IntSaturator returns a conversion from int64 to T clamping to T's range.
func IntSaturator[T Pixel]() func(int64) T {
	var zero T
	var fn any
	switch any(zero).(type) {
	case uint8:
		fn = func(v int64) uint8 { return uint8(clampInt(v, 0, math.MaxUint8)) }
	case uint16:
		fn = func(v int64) uint16 { return uint16(clampInt(v, 0, math.MaxUint16)) }
	case int16:
		fn = func(v int64) int16 { return int16(clampInt(v, math.MinInt16, math.MaxInt16)) }
	case int32:
		fn = func(v int64) int32 { return int32(clampInt(v, math.MinInt32, math.MaxInt32)) }
	case float32:
		fn = func(v int64) float32 { return float32(v) }
	case float64:
		fn = func(v int64) float64 { return float64(v) }
	}
	return fn.(func(int64) T)
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
