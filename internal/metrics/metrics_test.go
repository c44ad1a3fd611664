package metrics

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

func newImage(t *testing.T, d core.Depth, w, h int, values ...float64) core.Image {
	t.Helper()
	img, err := core.New(d, image.Pt(w, h), 1)
	require.NoError(t, err)
	for i, v := range values {
		img.SetSample(0, i%w, i/w, v)
	}
	return img
}

func TestMSEAndPSNR(t *testing.T) {
	a := newImage(t, core.Depth8u, 2, 2, 10, 20, 30, 40)
	b := newImage(t, core.Depth8u, 2, 2, 12, 20, 30, 36)

	e := NewEvaluator()
	mse, err := e.Calculate("mse", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, mse, 1e-12)

	psnr, err := e.Calculate("psnr", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(255/math.Sqrt(5)), psnr, 1e-9)

	psnr, err = e.Calculate("psnr", a, a.Clone())
	require.NoError(t, err)
	assert.True(t, math.IsInf(psnr, 1))

	maxDiff, err := e.Calculate("max_abs_diff", a, b)
	require.NoError(t, err)
	assert.Equal(t, 4.0, maxDiff)
}

func TestFloatPeak(t *testing.T) {
	a := newImage(t, core.Depth32f, 1, 1, 0.5)
	b := newImage(t, core.Depth32f, 1, 1, 0.25)
	psnr, err := NewPSNR().Calculate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(1/0.25), psnr, 1e-9)
}

func TestGeometryMismatch(t *testing.T) {
	a := newImage(t, core.Depth8u, 3, 3)
	b := newImage(t, core.Depth8u, 2, 2)
	_, err := NewMSE().Calculate(a, b)
	assert.ErrorIs(t, err, core.ErrIncompatibleGeometry)

	// only the ROIs have to agree
	require.NoError(t, a.SetROI(image.Rect(1, 1, 3, 3)))
	_, err = NewMSE().Calculate(a, b)
	assert.NoError(t, err)

	_, err = NewEvaluator().Calculate("fmeasure", a, b)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestContrastAndSharpness(t *testing.T) {
	edges := newImage(t, core.Depth8u, 4, 4,
		0, 0, 200, 200,
		0, 0, 200, 200,
		0, 0, 200, 200,
		0, 0, 200, 200)
	flat := newImage(t, core.Depth8u, 4, 4,
		100, 100, 100, 100,
		100, 100, 100, 100,
		100, 100, 100, 100,
		100, 100, 100, 100)

	contrast, err := NewContrastRatio().Calculate(edges, flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, contrast)

	same, err := NewContrastRatio().Calculate(edges, edges)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-12)

	sharp, err := NewSharpness().Calculate(edges, flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sharp)

	_, err = NewSharpness().Calculate(flat, edges)
	assert.Error(t, err)
}

func TestEvaluateStepAlignsInput(t *testing.T) {
	before := newImage(t, core.Depth8u, 4, 4,
		9, 9, 9, 9,
		9, 1, 2, 9,
		9, 3, 4, 9,
		9, 9, 9, 9)
	after := newImage(t, core.Depth8u, 2, 2, 1, 2, 3, 4)

	m := NewEvaluator().EvaluateStep(before, after, "gauss3x3", image.Pt(1, 1))
	assert.Equal(t, 0.0, m["mse"])
	assert.True(t, math.IsInf(m["psnr"], 1))
	assert.Contains(t, m, "contrast_preservation")
	assert.NotContains(t, m, "edge_response")

	assert.Empty(t, NewEvaluator().EvaluateStep(after, before, "gauss3x3", image.Pt(1, 1)))
	assert.Empty(t, NewEvaluator().EvaluateStep(before, after, "gauss3x3", image.Pt(3, 3)))
}

func identityStep(t *testing.T, before core.Image, mask image.Point) (core.Image, image.Point) {
	t.Helper()
	anchor := convolution.AnchorOf(mask)
	weights := make([]int, mask.X*mask.Y)
	weights[anchor.Y*mask.X+anchor.X] = 1
	op, err := convolution.NewInteger(weights, mask, 1, true)
	require.NoError(t, err)
	defer op.Close()

	var after core.Image
	require.NoError(t, op.ApplyAlloc(before, &after))
	origin, _, err := core.NeighborhoodROI(before, mask, anchor)
	require.NoError(t, err)
	return after, origin
}

func TestEvaluateStepFollowsNeighborhoodOrigin(t *testing.T) {
	values := make([]float64, 64)
	for i := range values {
		values[i] = float64(i * 3)
	}

	t.Run("even mask", func(t *testing.T) {
		before := newImage(t, core.Depth8u, 8, 8, values...)
		after, origin := identityStep(t, before, image.Pt(4, 4))
		assert.Equal(t, image.Pt(2, 2), origin)

		m := NewEvaluator().EvaluateStep(before, after, "custom", origin)
		assert.Equal(t, 0.0, m["mse"])
	})

	t.Run("roi on the left edge", func(t *testing.T) {
		before := newImage(t, core.Depth8u, 8, 8, values...)
		require.NoError(t, before.SetROI(image.Rect(0, 2, 5, 7)))
		after, origin := identityStep(t, before, image.Pt(3, 3))
		assert.Equal(t, image.Pt(1, 2), origin)
		assert.Equal(t, image.Pt(4, 5), after.ROI().Size())

		m := NewEvaluator().EvaluateStep(before, after, "custom", origin)
		assert.Equal(t, 0.0, m["mse"])
	})
}

func TestSSIM(t *testing.T) {
	edges := newImage(t, core.Depth8u, 8, 8)
	noisy := newImage(t, core.Depth8u, 8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := 0.0
			if x >= 4 {
				v = 200
			}
			edges.SetSample(0, x, y, v)
			noisy.SetSample(0, x, y, v+float64((x*7+y*3)%11))
		}
	}

	same, err := NewSSIM().Calculate(edges, edges.Clone())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-9)

	near, err := NewSSIM().Calculate(edges, noisy)
	require.NoError(t, err)
	assert.Less(t, near, 1.0)
	assert.Greater(t, near, 0.5)

	inverted := newImage(t, core.Depth8u, 8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			inverted.SetSample(0, x, y, 200-edges.Sample(0, x, y))
		}
	}
	far, err := NewSSIM().Calculate(edges, inverted)
	require.NoError(t, err)
	assert.Less(t, far, near)

	tiny := newImage(t, core.Depth8u, 1, 1, 50)
	one, err := NewSSIM().Calculate(tiny, tiny.Clone())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, one, 1e-12)

	_, err = NewSSIM().Calculate(edges, tiny)
	assert.ErrorIs(t, err, core.ErrIncompatibleGeometry)
}

func TestReport(t *testing.T) {
	e := NewEvaluator()
	a := newImage(t, core.Depth8u, 2, 1, 100, 100)

	r := e.GenerateReport(a, a.Clone())
	assert.True(t, r.Identical)
	assert.Equal(t, "identical", r.Level)

	r = e.GenerateReport(a, newImage(t, core.Depth8u, 2, 1, 101, 100))
	assert.Equal(t, "close", r.Level)

	r = e.GenerateReport(a, newImage(t, core.Depth8u, 3, 1))
	assert.Equal(t, "different", r.Level)
	assert.Empty(t, r.Metrics)

	assert.Len(t, e.GetMetricInfo(), len(e.Names()))
}
