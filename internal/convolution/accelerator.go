package convolution

import (
	"image"

	"image-convolution/internal/core"
)

// Job is one accelerated convolution request. Dst already has the output
// geometry; Origin is the source position of the first output pixel.
type Job struct {
	Src     core.Image
	Dst     core.Image
	Origin  image.Point
	Mask    image.Point
	Anchor  image.Point
	Preset  Preset
	Weights []int
	Divisor int
}

// Accelerator is an optional backend for the built-in presets.
//
// The operator asks CanAccelerate once per depth whenever its kernel changes
// and routes matching depths to Convolve. If Convolve returns an error the
// generic routine for the same depth runs instead, so a backend may return
// ErrFallback for anything it does not want to handle.
type Accelerator interface {
	// Name returns the backend name (e.g. "opencv").
	Name() string

	// CanAccelerate reports whether the backend handles preset p on depth d.
	CanAccelerate(p Preset, d core.Depth) bool

	// Convolve writes the convolution of job.Src into the ROI of job.Dst.
	Convolve(job Job) error
}
