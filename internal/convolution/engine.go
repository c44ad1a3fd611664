package convolution

import (
	"image"

	"golang.org/x/sync/errgroup"

	"image-convolution/internal/core"
)

// window describes which source pixels feed which destination pixels.
type window struct {
	origin image.Point // source position of the first output pixel
	out    image.Rectangle
	mask   image.Point
	anchor image.Point
}

// taps returns, per mask element in row-major order, the offset of the
// source sample relative to the output position in a plane of the given width.
func (w window) taps(width int) []int {
	offs := make([]int, 0, w.mask.X*w.mask.Y)
	for ky := 0; ky < w.mask.Y; ky++ {
		for kx := 0; kx < w.mask.X; kx++ {
			offs = append(offs, (ky-w.anchor.Y)*width+(kx-w.anchor.X))
		}
	}
	return offs
}

// forEachBand runs fn over every channel and a split of the output rows.
// Channels and rows are independent so the split only affects scheduling.
func forEachBand(channels, rows, workers int, fn func(c, y0, y1 int)) error {
	if rows <= 0 {
		return nil
	}
	bands := min(max(workers, 1), rows)
	step := (rows + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for c := 0; c < channels; c++ {
		for y0 := 0; y0 < rows; y0 += step {
			c, y0, y1 := c, y0, min(y0+step, rows)
			g.Go(func() error {
				fn(c, y0, y1)
				return nil
			})
		}
	}
	return g.Wait()
}

// convolveInt is the reference routine for integer kernels on integer images:
// exact int64 sums, truncating division by the divisor, saturation to T.
func convolveInt[T core.Pixel](src, dst *core.Img[T], w window, weights []int, divisor int64, sat func(int64) T, workers int) error {
	// borrowed weights may have changed since they were configured
	if err := checkWeightRange(weights); err != nil {
		return err
	}
	srcW := src.Size().X
	dstW := dst.Size().X
	offs := w.taps(srcW)

	// zero weights contribute nothing to an integer sum
	type tap struct {
		off int
		w   int64
	}
	taps := make([]tap, 0, len(offs))
	for i, off := range offs {
		if weights[i] != 0 {
			taps = append(taps, tap{off: off, w: int64(weights[i])})
		}
	}

	width := w.out.Dx()
	return forEachBand(src.Channels(), w.out.Dy(), workers, func(c, y0, y1 int) {
		s := src.Plane(c)
		d := dst.Plane(c)
		for y := y0; y < y1; y++ {
			si := (w.origin.Y+y)*srcW + w.origin.X
			di := (w.out.Min.Y+y)*dstW + w.out.Min.X
			for x := 0; x < width; x++ {
				var sum int64
				for _, t := range taps {
					sum += t.w * int64(s[si+x+t.off])
				}
				d[di+x] = sat(sum / divisor)
			}
		}
	})
}

// convolveFloat runs a float kernel with float64 accumulation. Integer
// targets are saturated by sat; float targets are stored at their precision.
func convolveFloat[T core.Pixel](src, dst *core.Img[T], w window, weights []float32, sat func(float64) T, workers int) error {
	srcW := src.Size().X
	dstW := dst.Size().X
	offs := w.taps(srcW)

	kw := make([]float64, len(weights))
	for i, v := range weights {
		kw[i] = float64(v)
	}

	width := w.out.Dx()
	return forEachBand(src.Channels(), w.out.Dy(), workers, func(c, y0, y1 int) {
		s := src.Plane(c)
		d := dst.Plane(c)
		for y := y0; y < y1; y++ {
			si := (w.origin.Y+y)*srcW + w.origin.X
			di := (w.out.Min.Y+y)*dstW + w.out.Min.X
			for x := 0; x < width; x++ {
				var sum float64
				for i, off := range offs {
					sum += kw[i] * float64(s[si+x+off])
				}
				d[di+x] = sat(sum)
			}
		}
	})
}
