package convolution

import (
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Option configures an Op.
type Option func(*Op)

// WithAccelerator routes supported preset/depth combinations to a.
// A nil accelerator keeps the generic routines.
func WithAccelerator(a Accelerator) Option {
	return func(op *Op) { op.accel = a }
}

// WithLogger sets the logger. By default the operator logs nothing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(op *Op) {
		if l != nil {
			op.log = l
		}
	}
}

// WithClipToROI controls destinations allocated by ApplyAlloc. When true
// (the default) the destination is exactly the output size. When false it has
// the source image size and the output is written to a ROI at the same
// position as in the source.
func WithClipToROI(clip bool) Option {
	return func(op *Op) { op.clipToROI = clip }
}

// WithWorkers bounds the number of goroutines used per Apply. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(op *Op) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		op.workers = n
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
