// ROI preparation for neighborhood operations
package core

import (
	"image"

	"github.com/pkg/errors"
)

// NeighborhoodROI computes where a mask of the given size and anchor can be
// evaluated on src. The result covers every position of the source ROI at
// which the whole mask lies inside the image, so pixels outside the ROI are
// read when they exist. origin is the source position (image coordinates) of
// the first output pixel, size is the output extent.
func NeighborhoodROI(src Image, mask, anchor image.Point) (origin, size image.Point, err error) {
	if mask.X <= 0 || mask.Y <= 0 {
		return image.Point{}, image.Point{}, errors.Wrapf(ErrIncompatibleGeometry, "mask %dx%d", mask.X, mask.Y)
	}
	roi := src.ROI()
	img := src.Size()

	minX := max(roi.Min.X, anchor.X)
	minY := max(roi.Min.Y, anchor.Y)
	maxX := min(roi.Max.X, img.X-mask.X+anchor.X+1)
	maxY := min(roi.Max.Y, img.Y-mask.Y+anchor.Y+1)

	if maxX <= minX || maxY <= minY {
		return image.Point{}, image.Point{}, errors.Wrapf(ErrIncompatibleGeometry,
			"roi %v of %dx%d image too small for %dx%d mask", roi, img.X, img.Y, mask.X, mask.Y)
	}
	return image.Pt(minX, minY), image.Pt(maxX-minX, maxY-minY), nil
}

// CheckCompatible reports whether dst can receive an output of the given
// depth, channel count and ROI size.
func CheckCompatible(dst Image, depth Depth, size image.Point, channels int) error {
	if dst == nil {
		return errors.Wrap(ErrIncompatibleGeometry, "nil destination")
	}
	if dst.Depth() != depth {
		return errors.Wrapf(ErrIncompatibleGeometry, "destination depth %s, want %s", dst.Depth(), depth)
	}
	if dst.Channels() != channels {
		return errors.Wrapf(ErrIncompatibleGeometry, "destination has %d channels, want %d", dst.Channels(), channels)
	}
	if got := dst.ROI().Size(); got != size {
		return errors.Wrapf(ErrIncompatibleGeometry, "destination roi %v, want %v", got, size)
	}
	return nil
}

// Prepare makes *dst an image of the given depth, image size and channel count
// with its ROI set to roi. An existing destination is reused when it already
// matches, otherwise a new image is allocated and stored in *dst.
func Prepare(dst *Image, depth Depth, imageSize image.Point, channels int, roi image.Rectangle) error {
	if dst == nil {
		return errors.Wrap(ErrIncompatibleGeometry, "nil destination handle")
	}
	cur := *dst
	if cur == nil || cur.Depth() != depth || cur.Size() != imageSize || cur.Channels() != channels {
		img, err := New(depth, imageSize, channels)
		if err != nil {
			return err
		}
		cur = img
		*dst = cur
	}
	return cur.SetROI(roi)
}
