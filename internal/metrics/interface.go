// Metrics system for comparing convolution results
package metrics

import (
	"image"
	"math"
	"sort"

	"github.com/pkg/errors"

	"image-convolution/internal/core"
)

// ErrUnknownMetric is returned for names that were never registered.
var ErrUnknownMetric = errors.New("metric not found")

// Metric defines the interface for image comparison metrics
type Metric interface {
	// Calculate compares the ROIs of both images
	Calculate(original, processed core.Image) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate closer images
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
	e.Register("max_abs_diff", NewMaxAbsDiff())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
	e.Register("ssim", NewSSIM())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed core.Image) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, errors.Wrap(ErrUnknownMetric, name)
	}

	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics. Metrics that cannot be
// computed for the pair are left out.
func (e *Evaluator) CalculateAll(original, processed core.Image) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}

	return results
}

// EvaluateStep calculates metrics for a processing step. origin is the
// position in before of the pixel the first output pixel was centered on;
// before is compared over the region of after's ROI size starting there.
func (e *Evaluator) EvaluateStep(before, after core.Image, stepName string, origin image.Point) map[string]float64 {
	metrics := make(map[string]float64)

	before, ok := alignedInput(before, after, origin)
	if !ok {
		return metrics
	}

	if mse, err := e.Calculate("mse", before, after); err == nil {
		metrics["mse"] = mse
	}
	if psnr, err := e.Calculate("psnr", before, after); err == nil {
		metrics["psnr"] = psnr
	}

	switch stepName {
	case "gauss3x3", "gauss5x5", "box":
		if contrast, err := e.Calculate("contrast_ratio", before, after); err == nil {
			metrics["contrast_preservation"] = contrast
		}
		if ssim, err := e.Calculate("ssim", before, after); err == nil {
			metrics["structural_similarity"] = ssim
		}

	case "sobelx3x3", "sobelx5x5", "sobely3x3", "sobely5x5", "laplace3x3", "laplace5x5":
		if sharpness, err := e.Calculate("sharpness", before, after); err == nil {
			metrics["edge_response"] = sharpness
		}
	}

	return metrics
}

// alignedInput returns a view of before whose ROI covers the pixels after's
// ROI was centered on.
func alignedInput(before, after core.Image, origin image.Point) (core.Image, bool) {
	if before == nil || after == nil || before.Channels() != after.Channels() {
		return nil, false
	}
	roi := image.Rectangle{Min: origin, Max: origin.Add(after.ROI().Size())}
	if !roi.In(image.Rectangle{Max: before.Size()}) {
		return nil, false
	}
	view := before.Clone()
	if err := view.SetROI(roi); err != nil {
		return nil, false
	}
	return view, true
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)

	for name, metric := range e.metrics {
		min, max := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{min, max},
			HigherBetter: metric.IsHigherBetter(),
		}
	}

	return info
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// Report contains all metrics for one image pair
type Report struct {
	Metrics   map[string]float64 `json:"metrics"`
	Identical bool               `json:"identical"`
	Level     string             `json:"level"` // "identical", "close", "similar", "different"
}

// GenerateReport compares two images with every registered metric
func (e *Evaluator) GenerateReport(original, processed core.Image) Report {
	metrics := e.CalculateAll(original, processed)

	report := Report{Metrics: metrics}
	psnr, ok := metrics["psnr"]
	switch {
	case !ok:
		report.Level = "different"
	case math.IsInf(psnr, 1):
		report.Identical = true
		report.Level = "identical"
	case psnr >= 40:
		report.Level = "close"
	case psnr >= 20:
		report.Level = "similar"
	default:
		report.Level = "different"
	}
	return report
}
