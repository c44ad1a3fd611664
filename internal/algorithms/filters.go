// Filter algorithms built on the convolution operator
package algorithms

import (
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

const maxMaskSide = 15

// PresetFilter applies one of the built-in kernels
type PresetFilter struct {
	preset convolution.Preset
}

// NewPresetFilter creates a filter for preset p
func NewPresetFilter(p convolution.Preset) *PresetFilter {
	return &PresetFilter{preset: p}
}

type presetParams struct {
	Depth string `param:"depth"`
}

func (f *PresetFilter) Apply(input core.Image, params map[string]interface{}, opts ...convolution.Option) (core.Image, error) {
	if err := core.ValidateImage(input); err != nil {
		return nil, err
	}

	var p presetParams
	if err := decodeParams(f.GetDefaultParams(), params, &p); err != nil {
		return nil, err
	}
	src, err := convertInput(input, p.Depth)
	if err != nil {
		return nil, err
	}

	op, err := convolution.NewFixed(f.preset, opts...)
	if err != nil {
		return nil, err
	}
	defer op.Close()

	var output core.Image
	if err := op.ApplyAlloc(src, &output); err != nil {
		return nil, errors.Wrapf(err, "%s", f.preset)
	}
	return output, nil
}

func (f *PresetFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"depth": "",
	}
}

func (f *PresetFilter) GetName() string {
	return f.preset.String()
}

func (f *PresetFilter) GetDescription() string {
	size := f.preset.Size()
	return fmt.Sprintf("Built-in %dx%d kernel, divisor %d", size.X, size.Y, f.preset.Divisor())
}

func (f *PresetFilter) Validate(params map[string]interface{}) error {
	var p presetParams
	if err := decodeParams(f.GetDefaultParams(), params, &p); err != nil {
		return err
	}
	return validateDepth(p.Depth)
}

func (f *PresetFilter) Footprint(params map[string]interface{}) (image.Point, image.Point, error) {
	if err := f.Validate(params); err != nil {
		return image.Point{}, image.Point{}, err
	}
	size := f.preset.Size()
	return size, convolution.AnchorOf(size), nil
}

func (f *PresetFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{depthParameter()}
}

// BoxFilter averages an n x n neighborhood
type BoxFilter struct{}

// NewBoxFilter creates a new box filter algorithm
func NewBoxFilter() *BoxFilter {
	return &BoxFilter{}
}

type boxParams struct {
	Size  int    `param:"size"`
	Depth string `param:"depth"`
}

func (b *BoxFilter) Apply(input core.Image, params map[string]interface{}, opts ...convolution.Option) (core.Image, error) {
	if err := core.ValidateImage(input); err != nil {
		return nil, err
	}
	var p boxParams
	if err := decodeParams(b.GetDefaultParams(), params, &p); err != nil {
		return nil, err
	}
	if err := b.check(p); err != nil {
		return nil, err
	}
	src, err := convertInput(input, p.Depth)
	if err != nil {
		return nil, err
	}

	weights := make([]int, p.Size*p.Size)
	for i := range weights {
		weights[i] = 1
	}
	op, err := convolution.NewInteger(weights, image.Pt(p.Size, p.Size), len(weights), true, opts...)
	if err != nil {
		return nil, err
	}
	defer op.Close()

	var output core.Image
	if err := op.ApplyAlloc(src, &output); err != nil {
		return nil, errors.Wrap(err, "box")
	}
	return output, nil
}

func (b *BoxFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"size":  3,
		"depth": "",
	}
}

func (b *BoxFilter) GetName() string {
	return "Box Filter"
}

func (b *BoxFilter) GetDescription() string {
	return "Mean of an n x n neighborhood"
}

func (b *BoxFilter) Validate(params map[string]interface{}) error {
	var p boxParams
	if err := decodeParams(b.GetDefaultParams(), params, &p); err != nil {
		return err
	}
	return b.check(p)
}

func (b *BoxFilter) check(p boxParams) error {
	if p.Size < 1 || p.Size > maxMaskSide {
		return errors.Wrapf(convolution.ErrInvalidArgument, "size must be between 1 and %d", maxMaskSide)
	}
	return validateDepth(p.Depth)
}

func (b *BoxFilter) Footprint(params map[string]interface{}) (image.Point, image.Point, error) {
	var p boxParams
	if err := decodeParams(b.GetDefaultParams(), params, &p); err != nil {
		return image.Point{}, image.Point{}, err
	}
	if err := b.check(p); err != nil {
		return image.Point{}, image.Point{}, err
	}
	size := image.Pt(p.Size, p.Size)
	return size, convolution.AnchorOf(size), nil
}

func (b *BoxFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "size",
			Type:        "int",
			Min:         1,
			Max:         maxMaskSide,
			Default:     3,
			Description: "Side length of the square mask",
		},
		depthParameter(),
	}
}

// CustomKernel applies user supplied weights
type CustomKernel struct{}

// NewCustomKernel creates a new custom kernel algorithm
func NewCustomKernel() *CustomKernel {
	return &CustomKernel{}
}

type customParams struct {
	Width   int       `param:"width"`
	Height  int       `param:"height"`
	Weights []float64 `param:"weights"`
	Divisor int       `param:"divisor"`
	Kind    string    `param:"kind"`
	Depth   string    `param:"depth"`
}

func (k *CustomKernel) Apply(input core.Image, params map[string]interface{}, opts ...convolution.Option) (core.Image, error) {
	if err := core.ValidateImage(input); err != nil {
		return nil, err
	}
	var p customParams
	if err := decodeParams(k.GetDefaultParams(), params, &p); err != nil {
		return nil, err
	}
	if err := k.check(p); err != nil {
		return nil, err
	}
	src, err := convertInput(input, p.Depth)
	if err != nil {
		return nil, err
	}

	size := image.Pt(p.Width, p.Height)
	var op *convolution.Op
	if p.Kind == "integer" {
		ints := make([]int, len(p.Weights))
		for i, w := range p.Weights {
			ints[i] = int(w)
		}
		op, err = convolution.NewInteger(ints, size, p.Divisor, true, opts...)
	} else {
		floats := make([]float32, len(p.Weights))
		for i, w := range p.Weights {
			floats[i] = float32(w)
		}
		op, err = convolution.NewFloat(floats, size, true, opts...)
	}
	if err != nil {
		return nil, err
	}
	defer op.Close()

	var output core.Image
	if err := op.ApplyAlloc(src, &output); err != nil {
		return nil, errors.Wrap(err, "custom")
	}
	return output, nil
}

func (k *CustomKernel) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"width":   3,
		"height":  3,
		"weights": []float64{0, 0, 0, 0, 1, 0, 0, 0, 0},
		"divisor": 1,
		"kind":    "integer",
		"depth":   "",
	}
}

func (k *CustomKernel) GetName() string {
	return "Custom Kernel"
}

func (k *CustomKernel) GetDescription() string {
	return "User supplied integer or float weights"
}

func (k *CustomKernel) Validate(params map[string]interface{}) error {
	var p customParams
	if err := decodeParams(k.GetDefaultParams(), params, &p); err != nil {
		return err
	}
	return k.check(p)
}

func (k *CustomKernel) check(p customParams) error {
	if p.Width < 1 || p.Width > maxMaskSide || p.Height < 1 || p.Height > maxMaskSide {
		return errors.Wrapf(convolution.ErrInvalidArgument, "width and height must be between 1 and %d", maxMaskSide)
	}
	if len(p.Weights) != p.Width*p.Height {
		return errors.Wrapf(convolution.ErrInvalidArgument, "%d weights for %dx%d mask", len(p.Weights), p.Width, p.Height)
	}
	switch p.Kind {
	case "integer":
		if p.Divisor == 0 {
			return errors.WithStack(convolution.ErrDivisionByZero)
		}
		for _, w := range p.Weights {
			if w != math.Trunc(w) {
				return errors.Wrapf(convolution.ErrInvalidArgument, "integer kernel weight %v", w)
			}
		}
	case "float":
		if p.Divisor != 1 {
			return errors.Wrap(convolution.ErrInvalidArgument, "float kernels take no divisor")
		}
	default:
		return errors.Wrapf(convolution.ErrInvalidArgument, "kind %q", p.Kind)
	}
	return validateDepth(p.Depth)
}

func (k *CustomKernel) Footprint(params map[string]interface{}) (image.Point, image.Point, error) {
	var p customParams
	if err := decodeParams(k.GetDefaultParams(), params, &p); err != nil {
		return image.Point{}, image.Point{}, err
	}
	if err := k.check(p); err != nil {
		return image.Point{}, image.Point{}, err
	}
	size := image.Pt(p.Width, p.Height)
	return size, convolution.AnchorOf(size), nil
}

func (k *CustomKernel) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "width",
			Type:        "int",
			Min:         1,
			Max:         maxMaskSide,
			Default:     3,
			Description: "Mask width",
		},
		{
			Name:        "height",
			Type:        "int",
			Min:         1,
			Max:         maxMaskSide,
			Default:     3,
			Description: "Mask height",
		},
		{
			Name:        "weights",
			Type:        "floats",
			Default:     []float64{0, 0, 0, 0, 1, 0, 0, 0, 0},
			Description: "Row-major weights, width*height values",
		},
		{
			Name:        "divisor",
			Type:        "int",
			Default:     1,
			Description: "Normalization divisor for integer kernels",
		},
		{
			Name:        "kind",
			Type:        "enum",
			Default:     "integer",
			Description: "Numeric kind of the weights",
			Options:     []string{"integer", "float"},
		},
		depthParameter(),
	}
}

func validateDepth(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := core.ParseDepth(name); !ok {
		return errors.Wrapf(convolution.ErrInvalidArgument, "unknown depth %q", name)
	}
	return nil
}

func depthParameter() ParameterInfo {
	return ParameterInfo{
		Name:        "depth",
		Type:        "enum",
		Default:     "",
		Description: "Convert the input to this depth before filtering; empty keeps it",
		Options:     depthNames(),
	}
}
