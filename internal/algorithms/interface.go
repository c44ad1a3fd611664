// Named convolution filters with map-typed parameters
package algorithms

import (
	"image"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

// ErrUnknownAlgorithm is returned for names that were never registered.
var ErrUnknownAlgorithm = errors.New("algorithm not found")

// Algorithm defines the interface for image filters
type Algorithm interface {
	Apply(input core.Image, params map[string]interface{}, opts ...convolution.Option) (core.Image, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
	// Footprint returns the mask size and anchor params select.
	Footprint(params map[string]interface{}) (mask, anchor image.Point, err error)
}

// ParameterInfo describes a parameter for help output and config checks
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float", "bool", "string", "enum", "floats"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Options     []string    `json:"options,omitempty"` // For enum type
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, input core.Image, params map[string]interface{}, opts ...convolution.Option) (core.Image, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return nil, errors.Wrap(ErrUnknownAlgorithm, name)
	}

	return algorithm.Apply(input, params, opts...)
}

func ValidateParameters(name string, params map[string]interface{}) error {
	algorithm, exists := algorithms[name]
	if !exists {
		return errors.Wrap(ErrUnknownAlgorithm, name)
	}

	return algorithm.Validate(params)
}

// Footprint returns the mask size and anchor of a configured step.
func Footprint(name string, params map[string]interface{}) (mask, anchor image.Point, err error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return image.Point{}, image.Point{}, errors.Wrap(ErrUnknownAlgorithm, name)
	}
	return algorithm.Footprint(params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

func GetAllAlgorithms() map[string]Algorithm {
	result := make(map[string]Algorithm)
	for name, algorithm := range algorithms {
		result[name] = algorithm
	}
	return result
}

// Names returns the registered names in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetAlgorithmsByCategory() map[string][]string {
	return map[string][]string{
		"Smoothing": {
			"gauss3x3",
			"gauss5x5",
			"box",
		},
		"Edges": {
			"sobelx3x3",
			"sobelx5x5",
			"sobely3x3",
			"sobely5x5",
			"laplace3x3",
			"laplace5x5",
		},
		"Custom": {
			"custom",
		},
	}
}

// decodeParams merges params over defaults and decodes them into out.
// Numbers are accepted in any Go numeric type, as YAML and JSON produce them.
func decodeParams(defaults, params map[string]interface{}, out interface{}) error {
	merged := make(map[string]interface{}, len(defaults)+len(params))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "param",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(merged); err != nil {
		return errors.Wrap(convolution.ErrInvalidArgument, err.Error())
	}
	return nil
}

// convertInput returns input at the requested depth name; "" keeps it.
func convertInput(input core.Image, depth string) (core.Image, error) {
	if depth == "" {
		return input, nil
	}
	d, ok := core.ParseDepth(depth)
	if !ok {
		return nil, errors.Wrapf(convolution.ErrInvalidArgument, "unknown depth %q", depth)
	}
	if d == input.Depth() {
		return input, nil
	}
	return core.Convert(input, d)
}

func depthNames() []string {
	names := []string{""}
	for _, d := range core.Depths() {
		names = append(names, d.String())
	}
	return names
}

func init() {
	for _, p := range convolution.Presets() {
		Register(p.String(), NewPresetFilter(p))
	}
	Register("box", NewBoxFilter())
	Register("custom", NewCustomKernel())
}
