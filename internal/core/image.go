// Core multi-channel image buffer with region of interest
package core

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width, height or channel count is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidDepth is returned when the depth is not recognized.
	ErrInvalidDepth = errors.New("image: invalid depth")

	// ErrInvalidROI is returned when a region of interest is empty or leaves the image.
	ErrInvalidROI = errors.New("image: invalid roi")

	// ErrIncompatibleGeometry is returned when source and destination cannot be matched.
	ErrIncompatibleGeometry = errors.New("incompatible geometry")
)

// maxDimension bounds image width and height to keep allocations sane.
const maxDimension = 16384

// Pixel is the set of sample types an Img can store.
type Pixel interface {
	uint8 | uint16 | int16 | int32 | float32 | float64
}

// Image is the depth-erased view of a planar multi-channel image.
// Concrete storage is always an *Img[T]; routines that need raw access
// type-assert to the matching instantiation.
type Image interface {
	Depth() Depth
	Channels() int
	Size() image.Point
	ROI() image.Rectangle
	SetROI(roi image.Rectangle) error
	// LineStep is the number of bytes per row of one channel plane.
	LineStep() int
	// Sample reads a channel sample converted to float64.
	Sample(c, x, y int) float64
	// SetSample writes a channel sample, saturating to the depth's range.
	SetSample(c, x, y int, v float64)
	Clone() Image
}

// Img stores one contiguous plane per channel, rows packed without padding.
// Img is not safe for concurrent mutation.
type Img[T Pixel] struct {
	depth  Depth
	width  int
	height int
	roi    image.Rectangle
	planes [][]T
	sat    func(float64) T
}

// DepthOf returns the depth that stores samples of type T.
func DepthOf[T Pixel]() Depth {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Depth8u
	case uint16:
		return Depth16u
	case int16:
		return Depth16s
	case int32:
		return Depth32s
	case float32:
		return Depth32f
	case float64:
		return Depth64f
	}
	return DepthCount
}

// NewImg allocates a zeroed image with the full image as ROI.
func NewImg[T Pixel](size image.Point, channels int) (*Img[T], error) {
	if size.X <= 0 || size.Y <= 0 || channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d with %d channels", size.X, size.Y, channels)
	}
	if size.X > maxDimension || size.Y > maxDimension {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d exceeds %d", size.X, size.Y, maxDimension)
	}

	planes := make([][]T, channels)
	for c := range planes {
		planes[c] = make([]T, size.X*size.Y)
	}

	return &Img[T]{
		depth:  DepthOf[T](),
		width:  size.X,
		height: size.Y,
		roi:    image.Rect(0, 0, size.X, size.Y),
		planes: planes,
		sat:    FloatSaturator[T](),
	}, nil
}

// New allocates a zeroed image of the given depth.
func New(depth Depth, size image.Point, channels int) (Image, error) {
	switch depth {
	case Depth8u:
		return NewImg[uint8](size, channels)
	case Depth16u:
		return NewImg[uint16](size, channels)
	case Depth16s:
		return NewImg[int16](size, channels)
	case Depth32s:
		return NewImg[int32](size, channels)
	case Depth32f:
		return NewImg[float32](size, channels)
	case Depth64f:
		return NewImg[float64](size, channels)
	}
	return nil, errors.Wrapf(ErrInvalidDepth, "depth %d", depth)
}

func (m *Img[T]) Depth() Depth { return m.depth }

func (m *Img[T]) Channels() int { return len(m.planes) }

func (m *Img[T]) Size() image.Point { return image.Pt(m.width, m.height) }

func (m *Img[T]) ROI() image.Rectangle { return m.roi }

// SetROI sets the region of interest. An empty rectangle resets it to the full image.
func (m *Img[T]) SetROI(roi image.Rectangle) error {
	if roi.Empty() {
		m.roi = image.Rect(0, 0, m.width, m.height)
		return nil
	}
	if !roi.In(image.Rect(0, 0, m.width, m.height)) {
		return errors.Wrapf(ErrInvalidROI, "%v outside %dx%d", roi, m.width, m.height)
	}
	m.roi = roi
	return nil
}

func (m *Img[T]) LineStep() int {
	return m.width * m.depth.Info().BytesPerSample
}

// Plane returns the raw samples of channel c in row-major order.
func (m *Img[T]) Plane(c int) []T {
	return m.planes[c]
}

// At returns the sample of channel c at (x, y) in image coordinates.
func (m *Img[T]) At(c, x, y int) T {
	return m.planes[c][y*m.width+x]
}

// Set writes the sample of channel c at (x, y) in image coordinates.
func (m *Img[T]) Set(c, x, y int, v T) {
	m.planes[c][y*m.width+x] = v
}

func (m *Img[T]) Sample(c, x, y int) float64 {
	return float64(m.planes[c][y*m.width+x])
}

func (m *Img[T]) SetSample(c, x, y int, v float64) {
	m.planes[c][y*m.width+x] = m.sat(v)
}

// Fill sets every sample of every channel to v, saturated to the depth.
func (m *Img[T]) Fill(v float64) {
	s := m.sat(v)
	for _, plane := range m.planes {
		for i := range plane {
			plane[i] = s
		}
	}
}

// Clone creates a deep copy including the ROI.
func (m *Img[T]) Clone() Image {
	planes := make([][]T, len(m.planes))
	for c, plane := range m.planes {
		planes[c] = append([]T(nil), plane...)
	}
	return &Img[T]{
		depth:  m.depth,
		width:  m.width,
		height: m.height,
		roi:    m.roi,
		planes: planes,
		sat:    m.sat,
	}
}

func (m *Img[T]) String() string {
	return fmt.Sprintf("Img[%s] %dx%d x%d roi=%v", m.depth, m.width, m.height, len(m.planes), m.roi)
}

// Convert returns a copy of src stored at the given depth. Samples are
// saturated to the target range; float to integer conversion truncates.
// The ROI is carried over.
func Convert(src Image, depth Depth) (Image, error) {
	if src.Depth() == depth {
		return src.Clone(), nil
	}
	dst, err := New(depth, src.Size(), src.Channels())
	if err != nil {
		return nil, err
	}
	size := src.Size()
	for c := 0; c < src.Channels(); c++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				dst.SetSample(c, x, y, src.Sample(c, x, y))
			}
		}
	}
	if err := dst.SetROI(src.ROI()); err != nil {
		return nil, err
	}
	return dst, nil
}

// ValidateImage validates an image for basic requirements
func ValidateImage(img Image) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}

	size := img.Size()
	if size.X <= 0 || size.Y <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", size.X, size.Y)
	}

	channels := img.Channels()
	if channels < 1 || channels > 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	if !img.Depth().IsValid() {
		return errors.Wrapf(ErrInvalidDepth, "depth %d", img.Depth())
	}

	return nil
}
