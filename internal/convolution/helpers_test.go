package convolution

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"image-convolution/internal/core"
)

func newFilled(t *testing.T, depth core.Depth, w, h, channels int, v float64) core.Image {
	t.Helper()
	img, err := core.New(depth, image.Pt(w, h), channels)
	require.NoError(t, err)
	for c := 0; c < channels; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetSample(c, x, y, v)
			}
		}
	}
	return img
}

func newRandom(t *testing.T, depth core.Depth, w, h, channels int, seed int64, lo, hi float64) core.Image {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img, err := core.New(depth, image.Pt(w, h), channels)
	require.NoError(t, err)
	for c := 0; c < channels; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetSample(c, x, y, lo+rng.Float64()*(hi-lo))
			}
		}
	}
	return img
}

// roiSamples returns the ROI of channel c in row-major order.
func roiSamples(img core.Image, c int) []float64 {
	roi := img.ROI()
	out := make([]float64, 0, roi.Dx()*roi.Dy())
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			out = append(out, img.Sample(c, x, y))
		}
	}
	return out
}

// referenceConvolve evaluates the weighted sum for output position (x, y)
// of a source whose ROI covers the whole image.
func referenceConvolve(img core.Image, c, x, y int, weights []float64, mask image.Point) float64 {
	var sum float64
	for ky := 0; ky < mask.Y; ky++ {
		for kx := 0; kx < mask.X; kx++ {
			sum += weights[ky*mask.X+kx] * img.Sample(c, x+kx, y+ky)
		}
	}
	return sum
}

type wrongDepthImage struct {
	*core.Img[uint8]
}

func (wrongDepthImage) Depth() core.Depth { return core.DepthCount }

type foreignImage struct {
	core.Image
}
