package convolution

import (
	"github.com/pkg/errors"

	"image-convolution/internal/core"
)

var (
	// ErrInvalidArgument is returned for malformed kernels, unknown presets
	// and operators used before a kernel was configured.
	ErrInvalidArgument = errors.New("convolution: invalid argument")

	// ErrDivisionByZero is returned for an integer kernel with divisor 0.
	// It also matches ErrInvalidArgument.
	ErrDivisionByZero error = divisionByZero{}

	// ErrIncompatibleGeometry is returned when the source ROI cannot hold the
	// mask or the destination does not match the required output.
	ErrIncompatibleGeometry = core.ErrIncompatibleGeometry

	// ErrUnsupportedDepth is returned when no routine is configured for the
	// source depth.
	ErrUnsupportedDepth = errors.New("convolution: unsupported depth")

	// ErrFallback is returned by an Accelerator that cannot handle a job.
	// The operator then runs the generic routine instead.
	ErrFallback = errors.New("convolution: falling back to generic routine")
)

type divisionByZero struct{}

func (divisionByZero) Error() string { return "convolution: division by zero" }

func (divisionByZero) Is(target error) bool { return target == ErrInvalidArgument }
