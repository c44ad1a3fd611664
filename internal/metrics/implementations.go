// Concrete implementations of comparison metrics
package metrics

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
)

// roiSamples flattens the ROI of every channel, channel after channel.
func roiSamples(img core.Image) []float64 {
	roi := img.ROI()
	out := make([]float64, 0, roi.Dx()*roi.Dy()*img.Channels())
	for c := 0; c < img.Channels(); c++ {
		for y := roi.Min.Y; y < roi.Max.Y; y++ {
			for x := roi.Min.X; x < roi.Max.X; x++ {
				out = append(out, img.Sample(c, x, y))
			}
		}
	}
	return out
}

// pairSamples returns the samples of both ROIs after checking they line up.
func pairSamples(original, processed core.Image) ([]float64, []float64, error) {
	if original == nil || processed == nil {
		return nil, nil, errors.New("nil image")
	}
	if original.Channels() != processed.Channels() {
		return nil, nil, errors.Wrapf(core.ErrIncompatibleGeometry, "%d vs %d channels", original.Channels(), processed.Channels())
	}
	if a, b := original.ROI().Size(), processed.ROI().Size(); a != b {
		return nil, nil, errors.Wrapf(core.ErrIncompatibleGeometry, "roi %v vs %v", a, b)
	}
	return roiSamples(original), roiSamples(processed), nil
}

func meanSquaredError(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d / float64(len(a))
}

// MSE implements Mean Squared Error
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed core.Image) (float64, error) {
	a, b, err := pairSamples(original, processed)
	if err != nil {
		return 0, err
	}
	return meanSquaredError(a, b), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error over the ROI of all channels"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// PSNR implements Peak Signal-to-Noise Ratio. The peak is the maximum of
// the original's depth for integer images and 1.0 for float images.
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed core.Image) (float64, error) {
	a, b, err := pairSamples(original, processed)
	if err != nil {
		return 0, err
	}

	mse := meanSquaredError(a, b)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	peak := 1.0
	if d := original.Depth(); !d.IsFloat() {
		peak = d.Info().Max
	}
	return 20 * math.Log10(peak/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio in dB"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// MaxAbsDiff is the largest absolute sample difference
type MaxAbsDiff struct{}

// NewMaxAbsDiff creates a new maximum absolute difference metric
func NewMaxAbsDiff() *MaxAbsDiff {
	return &MaxAbsDiff{}
}

func (m *MaxAbsDiff) Calculate(original, processed core.Image) (float64, error) {
	a, b, err := pairSamples(original, processed)
	if err != nil {
		return 0, err
	}
	return floats.Distance(a, b, math.Inf(1)), nil
}

func (m *MaxAbsDiff) GetName() string {
	return "Max Abs Diff"
}

func (m *MaxAbsDiff) GetDescription() string {
	return "Largest absolute difference between corresponding samples"
}

func (m *MaxAbsDiff) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

func (m *MaxAbsDiff) IsHigherBetter() bool {
	return false
}

// ContrastRatio compares the standard deviation of both images
type ContrastRatio struct{}

// NewContrastRatio creates a new contrast ratio metric
func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed core.Image) (float64, error) {
	a, b, err := pairSamples(original, processed)
	if err != nil {
		return 0, err
	}

	_, stdA := stat.MeanStdDev(a, nil)
	_, stdB := stat.MeanStdDev(b, nil)
	if stdA == 0 || math.IsNaN(stdA) {
		if stdB == 0 || math.IsNaN(stdB) {
			return 1, nil
		}
		return 0, errors.New("original has no contrast")
	}
	return stdB / stdA, nil
}

func (c *ContrastRatio) GetName() string {
	return "Contrast Ratio"
}

func (c *ContrastRatio) GetDescription() string {
	return "Standard deviation of the processed image relative to the original"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool {
	return true
}

// Sharpness compares the mean absolute Laplacian response of both images
type Sharpness struct{}

// NewSharpness creates a new sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed core.Image) (float64, error) {
	if _, _, err := pairSamples(original, processed); err != nil {
		return 0, err
	}

	before, err := s.calculateSharpness(original)
	if err != nil {
		return 0, err
	}
	after, err := s.calculateSharpness(processed)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		if after == 0 {
			return 1, nil
		}
		return 0, errors.New("original has no edges")
	}
	return after / before, nil
}

func (s *Sharpness) calculateSharpness(img core.Image) (float64, error) {
	src, err := core.Convert(img, core.Depth64f)
	if err != nil {
		return 0, err
	}
	op, err := convolution.NewFixed(convolution.PresetLaplace3x3)
	if err != nil {
		return 0, err
	}
	defer op.Close()

	var response core.Image
	if err := op.ApplyAlloc(src, &response); err != nil {
		return 0, err
	}
	values := roiSamples(response)
	for i, v := range values {
		values[i] = math.Abs(v)
	}
	return stat.Mean(values, nil), nil
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Mean absolute Laplacian of the processed image relative to the original"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}

// SSIM implements the Structural Similarity Index, averaged over every 7x7
// window of the ROI and over all channels.
type SSIM struct{}

// NewSSIM creates a new SSIM metric
func NewSSIM() *SSIM {
	return &SSIM{}
}

const ssimWindow = 7

func (s *SSIM) Calculate(original, processed core.Image) (float64, error) {
	if _, _, err := pairSamples(original, processed); err != nil {
		return 0, err
	}

	// (0.01 L)^2 and (0.03 L)^2 for dynamic range L
	dynamicRange := 1.0
	if d := original.Depth(); !d.IsFloat() {
		dynamicRange = d.Info().Max - d.Info().Min
	}
	c1 := math.Pow(0.01*dynamicRange, 2)
	c2 := math.Pow(0.03*dynamicRange, 2)

	ra, rb := original.ROI(), processed.ROI()
	size := ra.Size()
	win := image.Pt(min(ssimWindow, size.X), min(ssimWindow, size.Y))
	a := make([]float64, win.X*win.Y)
	b := make([]float64, win.X*win.Y)

	var total float64
	var windows int
	for c := 0; c < original.Channels(); c++ {
		for y := 0; y+win.Y <= size.Y; y++ {
			for x := 0; x+win.X <= size.X; x++ {
				i := 0
				for wy := 0; wy < win.Y; wy++ {
					for wx := 0; wx < win.X; wx++ {
						a[i] = original.Sample(c, ra.Min.X+x+wx, ra.Min.Y+y+wy)
						b[i] = processed.Sample(c, rb.Min.X+x+wx, rb.Min.Y+y+wy)
						i++
					}
				}
				total += ssimIndex(a, b, c1, c2)
				windows++
			}
		}
	}
	return total / float64(windows), nil
}

func ssimIndex(a, b []float64, c1, c2 float64) float64 {
	var varA, varB, cov float64
	muA, muB := stat.Mean(a, nil), stat.Mean(b, nil)
	if len(a) > 1 {
		varA = stat.Variance(a, nil)
		varB = stat.Variance(b, nil)
		cov = stat.Covariance(a, b, nil)
	}
	return ((2*muA*muB + c1) * (2*cov + c2)) / ((muA*muA + muB*muB + c1) * (varA + varB + c2))
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - measures perceptual quality"
}

func (s *SSIM) GetRange() (float64, float64) {
	return -1, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}
