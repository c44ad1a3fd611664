package algorithms

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

func flatImage(t *testing.T, d core.Depth, size image.Point, v float64) core.Image {
	t.Helper()
	img, err := core.New(d, size, 1)
	require.NoError(t, err)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			img.SetSample(0, x, y, v)
		}
	}
	return img
}

func TestRegistry(t *testing.T) {
	for _, p := range convolution.Presets() {
		assert.True(t, IsValidAlgorithm(p.String()), p.String())
	}
	assert.True(t, IsValidAlgorithm("box"))
	assert.True(t, IsValidAlgorithm("custom"))
	assert.False(t, IsValidAlgorithm("median"))

	names := Names()
	assert.Len(t, names, len(GetAllAlgorithms()))
	assert.IsIncreasing(t, names)

	var categorized []string
	for _, list := range GetAlgorithmsByCategory() {
		for _, name := range list {
			assert.True(t, IsValidAlgorithm(name), name)
			categorized = append(categorized, name)
		}
	}
	assert.ElementsMatch(t, names, categorized)

	_, err := Apply("median", flatImage(t, core.Depth8u, image.Pt(4, 4), 1), nil)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.ErrorIs(t, ValidateParameters("median", nil), ErrUnknownAlgorithm)
}

func TestDefaultsValidate(t *testing.T) {
	for name, alg := range GetAllAlgorithms() {
		assert.NoError(t, alg.Validate(alg.GetDefaultParams()), name)
		assert.NoError(t, alg.Validate(nil), name)
		assert.NotEmpty(t, alg.GetName(), name)
		assert.NotEmpty(t, alg.GetDescription(), name)
		assert.NotEmpty(t, alg.GetParameterInfo(), name)
	}
}

func TestPresetFilterDepthConversion(t *testing.T) {
	src := flatImage(t, core.Depth8u, image.Pt(6, 6), 0)
	for y := 0; y < 6; y++ {
		for x := 3; x < 6; x++ {
			src.SetSample(0, x, y, 100)
		}
	}

	out, err := Apply("sobelx3x3", src, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Depth8u, out.Depth())
	// the edge response is negative, so 8u clamps it away
	assert.Equal(t, 0.0, out.Sample(0, 1, 1))

	out, err = Apply("sobelx3x3", src, map[string]interface{}{"depth": "16s"})
	require.NoError(t, err)
	assert.Equal(t, core.Depth16s, out.Depth())
	assert.Equal(t, image.Pt(4, 4), out.Size())
	assert.Equal(t, -400.0, out.Sample(0, 1, 1))
	assert.Equal(t, -400.0, out.Sample(0, 2, 1))
	assert.Equal(t, 0.0, out.Sample(0, 0, 1))

	_, err = Apply("sobelx3x3", src, map[string]interface{}{"depth": "8s"})
	assert.ErrorIs(t, err, convolution.ErrInvalidArgument)
	_, err = Apply("sobelx3x3", src, map[string]interface{}{"sigma": 2.0})
	assert.ErrorIs(t, err, convolution.ErrInvalidArgument)
}

func TestBoxFilter(t *testing.T) {
	src := flatImage(t, core.Depth16u, image.Pt(7, 7), 900)
	src.SetSample(0, 3, 3, 0)

	out, err := Apply("box", src, map[string]interface{}{"size": 3.0})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 5), out.Size())
	assert.Equal(t, 800.0, out.Sample(0, 2, 2))
	assert.Equal(t, 900.0, out.Sample(0, 0, 0))

	assert.ErrorIs(t, ValidateParameters("box", map[string]interface{}{"size": 0}), convolution.ErrInvalidArgument)
	assert.ErrorIs(t, ValidateParameters("box", map[string]interface{}{"size": 16}), convolution.ErrInvalidArgument)
}

func TestCustomKernel(t *testing.T) {
	src := flatImage(t, core.Depth32f, image.Pt(5, 3), 2)

	out, err := Apply("custom", src, map[string]interface{}{
		"width":   3,
		"height":  1,
		"weights": []interface{}{1, 2, 1},
		"divisor": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 3), out.Size())
	assert.InDelta(t, 2.0, out.Sample(0, 1, 1), 1e-6)

	out, err = Apply("custom", src, map[string]interface{}{
		"width":   1,
		"height":  2,
		"weights": []float64{0.5, 0.25},
		"kind":    "float",
	})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 2), out.Size())
	assert.InDelta(t, 1.5, out.Sample(0, 0, 0), 1e-6)

	tests := []struct {
		name   string
		params map[string]interface{}
		target error
	}{
		{"weight count", map[string]interface{}{"width": 2}, convolution.ErrInvalidArgument},
		{"zero divisor", map[string]interface{}{"divisor": 0}, convolution.ErrDivisionByZero},
		{"fractional integer weight", map[string]interface{}{"weights": []float64{0, 0, 0, 0, 0.5, 0, 0, 0, 0}}, convolution.ErrInvalidArgument},
		{"float with divisor", map[string]interface{}{"kind": "float", "divisor": 3}, convolution.ErrInvalidArgument},
		{"unknown kind", map[string]interface{}{"kind": "complex"}, convolution.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateParameters("custom", tt.params), tt.target)
			_, err := Apply("custom", src, tt.params)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestApplyRejectsMissingInput(t *testing.T) {
	_, err := Apply("gauss3x3", nil, nil)
	assert.Error(t, err)
}
