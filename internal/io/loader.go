// Image loading and saving into planar core images
package io

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"image-convolution/internal/core"
)

// ErrUnsupportedFormat is returned for file extensions without a codec.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedFormats = map[string]string{
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".png":  "PNG",
	".tif":  "TIFF",
	".tiff": "TIFF",
	".bmp":  "BMP",
	".ppm":  "PPM",
}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger logrus.FieldLogger
}

func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage decodes a file. 8-bit grayscale files become single channel 8u
// images, 16-bit grayscale files 16u, everything else three channel 8u RGB.
func (il *ImageLoader) LoadImage(path string) (core.Image, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	decoded, err := il.decode(path)
	if err != nil {
		return nil, err
	}
	img, err := FromImage(decoded)
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s", path)
	}

	il.logLoaded(path, img, "Image loaded successfully")
	return img, nil
}

// LoadImageGrayscale decodes a file into a single channel 8u image.
func (il *ImageLoader) LoadImageGrayscale(path string) (core.Image, error) {
	il.logger.WithField("filepath", path).Debug("Loading image as grayscale")

	decoded, err := il.decode(path)
	if err != nil {
		return nil, err
	}
	img, err := grayFromImage(decoded)
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s", path)
	}

	il.logLoaded(path, img, "Grayscale image loaded successfully")
	return img, nil
}

func (il *ImageLoader) decode(path string) (image.Image, error) {
	if !il.isSupportedImageFormat(path) {
		return nil, errors.Wrap(ErrUnsupportedFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load image")
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	return decoded, nil
}

func (il *ImageLoader) logLoaded(path string, img core.Image, msg string) {
	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Size().X,
		"height":   img.Size().Y,
		"channels": img.Channels(),
		"depth":    img.Depth().String(),
	}).Info(msg)
}

// SaveImage encodes img by file extension. The whole image is written,
// not only its ROI.
func (il *ImageLoader) SaveImage(img core.Image, path string) (err error) {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if img == nil {
		return errors.New("cannot save empty image")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedFormats[ext]; !ok {
		return errors.Wrap(ErrUnsupportedFormat, path)
	}

	out, err := ToImage(img)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to save image")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to save image")
		}
	}()

	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, out, &jpeg.Options{Quality: 95})
	case ".png":
		err = png.Encode(f, out)
	case ".tif", ".tiff":
		err = tiff.Encode(f, out, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		err = bmp.Encode(f, out)
	case ".ppm":
		err = ppm.Encode(f, toRGBA(out))
	}
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Size().X,
		"height":   img.Size().Y,
		"channels": img.Channels(),
	}).Info("Image saved successfully")
	return nil
}

func (il *ImageLoader) isSupportedImageFormat(path string) bool {
	_, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP", "PPM"}
}

// ValidateImageFile checks that path decodes to a usable image.
func (il *ImageLoader) ValidateImageFile(path string) error {
	decoded, err := il.decode(path)
	if err != nil {
		return err
	}
	if b := decoded.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return errors.New("invalid image dimensions")
	}
	return nil
}

// FromImage copies a decoded image into planar storage.
func FromImage(src image.Image) (core.Image, error) {
	b := src.Bounds()
	size := image.Pt(b.Dx(), b.Dy())

	switch m := src.(type) {
	case *image.Gray:
		img, err := core.NewImg[uint8](size, 1)
		if err != nil {
			return nil, err
		}
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				img.Set(0, x, y, m.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return img, nil

	case *image.Gray16:
		img, err := core.NewImg[uint16](size, 1)
		if err != nil {
			return nil, err
		}
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				img.Set(0, x, y, m.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return img, nil
	}

	img, err := core.NewImg[uint8](size, 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			img.Set(0, x, y, c.R)
			img.Set(1, x, y, c.G)
			img.Set(2, x, y, c.B)
		}
	}
	return img, nil
}

func grayFromImage(src image.Image) (core.Image, error) {
	b := src.Bounds()
	img, err := core.NewImg[uint8](image.Pt(b.Dx(), b.Dy()), 1)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			img.Set(0, x, y, color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y)
		}
	}
	return img, nil
}

// ToImage converts img for encoding. Single channel 16u images become
// Gray16; every other depth is saturated to 8 bits. One channel maps to
// gray, three or four to RGB(A).
func ToImage(img core.Image) (image.Image, error) {
	size := img.Size()
	rect := image.Rect(0, 0, size.X, size.Y)

	switch img.Channels() {
	case 1:
		if img.Depth() == core.Depth16u {
			out := image.NewGray16(rect)
			for y := 0; y < size.Y; y++ {
				for x := 0; x < size.X; x++ {
					out.SetGray16(x, y, color.Gray16{Y: uint16(img.Sample(0, x, y))})
				}
			}
			return out, nil
		}
		out := image.NewGray(rect)
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				out.SetGray(x, y, color.Gray{Y: to8(img.Sample(0, x, y))})
			}
		}
		return out, nil

	case 3, 4:
		out := image.NewNRGBA(rect)
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				c := color.NRGBA{
					R: to8(img.Sample(0, x, y)),
					G: to8(img.Sample(1, x, y)),
					B: to8(img.Sample(2, x, y)),
					A: 255,
				}
				if img.Channels() == 4 {
					c.A = to8(img.Sample(3, x, y))
				}
				out.SetNRGBA(x, y, c)
			}
		}
		return out, nil
	}
	return nil, errors.Errorf("cannot encode %d channel image", img.Channels())
}

// toRGBA converts src for the PPM writer, which only takes the RGBA model.
func toRGBA(src image.Image) *image.RGBA {
	if m, ok := src.(*image.RGBA); ok {
		return m
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

func to8(v float64) uint8 {
	switch {
	case v != v || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
