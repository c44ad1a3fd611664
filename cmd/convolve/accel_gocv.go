//go:build gocv

package main

import (
	"image-convolution/internal/backend/opencv"
	"image-convolution/internal/config"
	"image-convolution/internal/convolution"
)

func init() {
	accelerators[config.AcceleratorOpenCV] = func() convolution.Accelerator { return opencv.New() }
}
