// Package convolution applies 2-D linear filters to multi-channel images.
//
// An Op holds a single kernel: one of the built-in presets (Gauss, Sobel,
// Laplace at 3x3 and 5x5), a custom integer kernel with a normalization
// divisor, or a custom float kernel. Kernel data is either copied into
// buffers the Op owns or borrowed from the caller.
//
// Every kernel change rebuilds a per-depth dispatch table:
//
//   - integer images with integer weights: exact int64 sums divided by the
//     divisor, saturated to the depth's range
//   - float images, and integer images with non-integral float weights:
//     float64 sums using the float weights (integer kernels contribute
//     weight/divisor)
//   - preset/depth pairs an injected Accelerator supports: the accelerator,
//     with the generic routine as fallback
//
// Usage:
//
//	op, err := convolution.NewFixed(convolution.PresetGauss3x3)
//	if err != nil {
//	    return err
//	}
//	var dst core.Image
//	if err := op.ApplyAlloc(src, &dst); err != nil {
//	    return err
//	}
package convolution
