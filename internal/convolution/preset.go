package convolution

import (
	"image"
	"strings"
)

// Preset names one of the built-in integer kernels.
type Preset uint8

const (
	PresetGauss3x3 Preset = iota
	PresetGauss5x5
	PresetSobelX3x3
	PresetSobelX5x5
	PresetSobelY3x3
	PresetSobelY5x5
	PresetLaplace3x3
	PresetLaplace5x5

	// PresetCustom marks a user supplied kernel. It is not a valid argument
	// to SetFixedKernel.
	PresetCustom
)

type presetKernel struct {
	name    string
	size    int
	divisor int
	weights []int
}

// Row-major weights. Never handed out without copying.
var presetTable = [PresetCustom]presetKernel{
	PresetGauss3x3: {
		name:    "gauss3x3",
		size:    3,
		divisor: 16,
		weights: []int{
			1, 2, 1,
			2, 4, 2,
			1, 2, 1,
		},
	},
	PresetGauss5x5: {
		name:    "gauss5x5",
		size:    5,
		divisor: 571,
		weights: []int{
			2, 7, 12, 7, 2,
			7, 31, 52, 31, 7,
			12, 52, 127, 52, 12,
			7, 31, 52, 31, 7,
			2, 7, 12, 7, 2,
		},
	},
	PresetSobelX3x3: {
		name:    "sobelx3x3",
		size:    3,
		divisor: 1,
		weights: []int{
			1, 0, -1,
			2, 0, -2,
			1, 0, -1,
		},
	},
	PresetSobelX5x5: {
		name:    "sobelx5x5",
		size:    5,
		divisor: 1,
		weights: []int{
			1, 2, 0, -2, -1,
			4, 8, 0, -8, -4,
			6, 12, 0, -12, -6,
			4, 8, 0, -8, -4,
			1, 2, 0, -2, -1,
		},
	},
	PresetSobelY3x3: {
		name:    "sobely3x3",
		size:    3,
		divisor: 1,
		weights: []int{
			1, 2, 1,
			0, 0, 0,
			-1, -2, -1,
		},
	},
	PresetSobelY5x5: {
		name:    "sobely5x5",
		size:    5,
		divisor: 1,
		weights: []int{
			1, 4, 6, 4, 1,
			2, 8, 12, 8, 2,
			0, 0, 0, 0, 0,
			-2, -8, -12, -8, -2,
			-1, -4, -6, -4, -1,
		},
	},
	PresetLaplace3x3: {
		name:    "laplace3x3",
		size:    3,
		divisor: 1,
		weights: []int{
			1, 1, 1,
			1, -8, 1,
			1, 1, 1,
		},
	},
	PresetLaplace5x5: {
		name:    "laplace5x5",
		size:    5,
		divisor: 1,
		weights: []int{
			-1, -3, -4, -3, -1,
			-3, 0, 6, 0, -3,
			-4, 6, 20, 6, -4,
			-3, 0, 6, 0, -3,
			-1, -3, -4, -3, -1,
		},
	},
}

// IsValid returns true for the eight built-in presets.
func (p Preset) IsValid() bool {
	return p < PresetCustom
}

// Size returns the mask size of the preset.
func (p Preset) Size() image.Point {
	if !p.IsValid() {
		return image.Point{}
	}
	n := presetTable[p].size
	return image.Pt(n, n)
}

// Divisor returns the normalization divisor of the preset.
func (p Preset) Divisor() int {
	if !p.IsValid() {
		return 0
	}
	return presetTable[p].divisor
}

// Weights returns a copy of the preset's row-major weights.
func (p Preset) Weights() []int {
	if !p.IsValid() {
		return nil
	}
	return append([]int(nil), presetTable[p].weights...)
}

func (p Preset) String() string {
	if p == PresetCustom {
		return "custom"
	}
	if !p.IsValid() {
		return "unknown"
	}
	return presetTable[p].name
}

// ParsePreset maps a preset name such as "gauss3x3" or "SobelX5x5" to a Preset.
func ParsePreset(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p := Preset(0); p < PresetCustom; p++ {
		if presetTable[p].name == name {
			return p, true
		}
	}
	return PresetCustom, false
}

// Presets returns all built-in presets in table order.
func Presets() []Preset {
	out := make([]Preset, 0, PresetCustom)
	for p := Preset(0); p < PresetCustom; p++ {
		out = append(out, p)
	}
	return out
}
