//go:build gocv

// Package opencv runs the built-in convolution presets through OpenCV.
//
// OpenCV computes the raw weighted sums in double precision; division by the
// preset divisor and saturation happen here so the results match the generic
// routines exactly on integer depths.
package opencv

import (
	"image"
	"unsafe"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

// Accelerator implements convolution.Accelerator with gocv.Filter2D.
type Accelerator struct{}

// New returns the OpenCV backend.
func New() *Accelerator {
	return &Accelerator{}
}

func (a *Accelerator) Name() string { return "opencv" }

// CanAccelerate accepts every preset on the depths filter2D reads natively.
func (a *Accelerator) CanAccelerate(p convolution.Preset, d core.Depth) bool {
	if !p.IsValid() {
		return false
	}
	switch d {
	case core.Depth8u, core.Depth16u, core.Depth16s, core.Depth32f, core.Depth64f:
		return true
	}
	return false
}

func (a *Accelerator) Convolve(job convolution.Job) error {
	if job.Divisor == 0 || len(job.Weights) != job.Mask.X*job.Mask.Y {
		return errors.Wrap(convolution.ErrFallback, "opencv: malformed job")
	}
	out := job.Dst.ROI()
	depth := job.Src.Depth()

	kernel, err := kernelMat(job, depth.IsFloat())
	if err != nil {
		return err
	}
	defer kernel.Close()

	// source rectangle holding every sample the output needs
	in := image.Rectangle{
		Min: job.Origin.Sub(job.Anchor),
		Max: job.Origin.Sub(job.Anchor).Add(out.Size()).Add(job.Mask).Sub(image.Pt(1, 1)),
	}

	for c := 0; c < job.Src.Channels(); c++ {
		if err := convolvePlane(job, kernel, c, in, out, depth); err != nil {
			return err
		}
	}
	return nil
}

func convolvePlane(job convolution.Job, kernel gocv.Mat, c int, in, out image.Rectangle, depth core.Depth) error {
	plane, err := planeMat(job.Src, c)
	if err != nil {
		return err
	}
	defer plane.Close()

	region := plane.Region(in)
	defer region.Close()

	sums := gocv.NewMat()
	defer sums.Close()
	if err := gocv.Filter2D(region, &sums, gocv.MatTypeCV64F, kernel, job.Anchor, 0, gocv.BorderReplicate); err != nil {
		return errors.Wrap(err, "opencv: filter2d")
	}
	if sums.Empty() {
		return errors.Wrap(convolution.ErrFallback, "opencv: empty result")
	}

	values, err := sums.DataPtrFloat64()
	if err != nil {
		return errors.Wrap(err, "opencv: reading result")
	}
	cols := sums.Cols()
	divisor := int64(job.Divisor)
	for y := 0; y < out.Dy(); y++ {
		row := (job.Anchor.Y+y)*cols + job.Anchor.X
		for x := 0; x < out.Dx(); x++ {
			v := values[row+x]
			if !depth.IsFloat() {
				v = float64(int64(v) / divisor)
			}
			job.Dst.SetSample(c, out.Min.X+x, out.Min.Y+y, v)
		}
	}
	return nil
}

// kernelMat builds a CV_64F kernel. Integer depths get the raw weights,
// float depths the single precision weight/divisor values.
func kernelMat(job convolution.Job, normalized bool) (gocv.Mat, error) {
	k := gocv.NewMatWithSize(job.Mask.Y, job.Mask.X, gocv.MatTypeCV64F)
	d := float32(job.Divisor)
	for i, w := range job.Weights {
		v := float64(w)
		if normalized {
			v = float64(float32(w) / d)
		}
		k.SetDoubleAt(i/job.Mask.X, i%job.Mask.X, v)
	}
	if k.Empty() {
		k.Close()
		return gocv.Mat{}, errors.Wrap(convolution.ErrFallback, "opencv: kernel allocation failed")
	}
	return k, nil
}

// planeMat wraps channel c of img without copying.
func planeMat(img core.Image, c int) (gocv.Mat, error) {
	size := img.Size()
	switch m := img.(type) {
	case *core.Img[uint8]:
		return gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV8U, m.Plane(c))
	case *core.Img[uint16]:
		return gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV16U, asBytes(m.Plane(c)))
	case *core.Img[int16]:
		return gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV16S, asBytes(m.Plane(c)))
	case *core.Img[float32]:
		return gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV32F, asBytes(m.Plane(c)))
	case *core.Img[float64]:
		return gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV64F, asBytes(m.Plane(c)))
	}
	return gocv.Mat{}, errors.Wrapf(convolution.ErrFallback, "opencv: unsupported image %T", img)
}

func asBytes[T core.Pixel](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
