package main

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-convolution/internal/core"
	imageio "image-convolution/internal/io"
)

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	img, err := core.New(core.Depth8u, image.Pt(12, 10), 1)
	require.NoError(t, err)
	for y := 0; y < 10; y++ {
		for x := 0; x < 12; x++ {
			img.SetSample(0, x, y, 80)
		}
	}
	path := filepath.Join(dir, "in.png")
	require.NoError(t, newTestLoader().SaveImage(img, path))
	return path
}

func newTestLoader() *imageio.ImageLoader {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return imageio.NewImageLoader(l)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := newApp(&stdout, io.Discard).Run(append([]string{AppName}, args...))
	return stdout.String(), err
}

func TestApplyPreset(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.png")

	_, err := run(t, "apply", "--in", in, "--out", out, "--preset", "gauss5x5")
	require.NoError(t, err)

	img, err := newTestLoader().LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 6), img.Size())
	assert.Equal(t, 80.0, img.Sample(0, 3, 3))
}

func TestApplyROIUnclipped(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.tiff")

	_, err := run(t, "apply", "--in", in, "--out", out, "--preset", "Gauss3x3", "--roi", "2,2,4,3", "--no-clip", "--depth", "16u")
	require.NoError(t, err)

	img, err := newTestLoader().LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, core.Depth16u, img.Depth())
	assert.Equal(t, image.Pt(12, 10), img.Size())
	assert.Equal(t, 0.0, img.Sample(0, 0, 0))
	assert.Equal(t, 80.0, img.Sample(0, 2, 2))
	assert.Equal(t, 80.0, img.Sample(0, 5, 4))
	assert.Equal(t, 0.0, img.Sample(0, 6, 4))
}

func TestApplyConfig(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.png")
	cfg := filepath.Join(dir, "steps.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
log_level: warn
steps:
  - algorithm: box
    params: {size: 5}
  - algorithm: sobely3x3
    params: {depth: 32f}
    enabled: false
`), 0o600))

	_, err := run(t, "apply", "--in", in, "--out", out, "--config", cfg, "--workers", "3")
	require.NoError(t, err)

	img, err := newTestLoader().LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 6), img.Size())
	assert.Equal(t, 80.0, img.Sample(0, 0, 0))
}

func TestApplyErrors(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.png")

	_, err := run(t, "apply", "--in", in, "--out", out)
	assert.Error(t, err)
	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "emboss")
	assert.Error(t, err)
	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "gauss3x3", "--accel", "cuda")
	assert.Error(t, err)
	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "gauss3x3", "--roi", "0,0,1")
	assert.Error(t, err)
	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "gauss3x3", "--depth", "12u")
	assert.Error(t, err)
	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "gauss5x5", "--roi", "0,0,2,2")
	assert.Error(t, err)
}

func TestPresetsAndFilters(t *testing.T) {
	out, err := run(t, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "gauss5x5")
	assert.Contains(t, out, "divisor 571")
	assert.Contains(t, out, "laplace3x3")

	out, err = run(t, "filters")
	require.NoError(t, err)
	assert.Contains(t, out, "custom:")
	assert.Contains(t, out, "weights")
	assert.Contains(t, out, "[Edges]")
	assert.Less(t, strings.Index(out, "[Smoothing]"), strings.Index(out, "box:"))

	out, err = run(t, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "ssim")
	assert.Contains(t, out, "psnr")
	assert.Contains(t, out, "lower is better")

	out, err = run(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "PPM")
	assert.Contains(t, out, "TIFF")
}

func TestApplyGray(t *testing.T) {
	dir := t.TempDir()
	rgb, err := core.New(core.Depth8u, image.Pt(6, 6), 3)
	require.NoError(t, err)
	for c := 0; c < 3; c++ {
		for y := 0; y < 6; y++ {
			for x := 0; x < 6; x++ {
				rgb.SetSample(c, x, y, 90)
			}
		}
	}
	in := filepath.Join(dir, "rgb.png")
	require.NoError(t, newTestLoader().SaveImage(rgb, in))
	out := filepath.Join(dir, "gray.ppm")

	_, err = run(t, "apply", "--in", in, "--out", out, "--preset", "gauss3x3", "--gray")
	require.NoError(t, err)

	img, err := newTestLoader().LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 4), img.Size())
	assert.Equal(t, 90.0, img.Sample(0, 1, 1))
	assert.Equal(t, 90.0, img.Sample(2, 1, 1))
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)

	out, err := run(t, "compare", "--a", in, "--b", in)
	require.NoError(t, err)
	assert.Contains(t, out, "mse            0")
	assert.Contains(t, out, "identical")

	other := filepath.Join(dir, "small.png")
	img, err := core.New(core.Depth8u, image.Pt(3, 3), 1)
	require.NoError(t, err)
	require.NoError(t, newTestLoader().SaveImage(img, other))
	_, err = run(t, "compare", "--a", in, "--b", other)
	assert.Error(t, err)
}

func TestParseROI(t *testing.T) {
	r, err := parseROI("1, 2,3,4")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(1, 2, 4, 6), r)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,5"} {
		_, err := parseROI(bad)
		assert.Error(t, err, bad)
	}
}
