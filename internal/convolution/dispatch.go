package convolution

import (
	"image"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"image-convolution/internal/core"
)

type routineKind uint8

const (
	routineNone routineKind = iota
	routineGenericInt
	routineGenericFloat
	routineAccelerated
)

func (k routineKind) String() string {
	switch k {
	case routineGenericInt:
		return "generic-int"
	case routineGenericFloat:
		return "generic-float"
	case routineAccelerated:
		return "accelerated"
	default:
		return "none"
	}
}

// routine is one dispatch table entry. run reads the kernel from the
// operator at call time, so borrowed kernels see the caller's latest data.
type routine struct {
	kind routineKind
	name string
	run  func(src, dst core.Image, origin image.Point) error
}

type routineTable [core.DepthCount]routine

func typed[T core.Pixel](src, dst core.Image) (*core.Img[T], *core.Img[T], error) {
	s, ok := src.(*core.Img[T])
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupportedDepth, "source %T", src)
	}
	d, ok := dst.(*core.Img[T])
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupportedDepth, "destination %T", dst)
	}
	return s, d, nil
}

func (op *Op) window(origin image.Point, dst core.Image) window {
	return window{
		origin: origin,
		out:    dst.ROI(),
		mask:   op.mask,
		anchor: op.anchor,
	}
}

func genericInt[T core.Pixel](op *Op) routine {
	sat := core.IntSaturator[T]()
	return routine{
		kind: routineGenericInt,
		name: routineGenericInt.String() + "/" + core.DepthOf[T]().String(),
		run: func(src, dst core.Image, origin image.Point) error {
			s, d, err := typed[T](src, dst)
			if err != nil {
				return err
			}
			return convolveInt(s, d, op.window(origin, dst), op.ints.weights(), int64(op.divisor), sat, op.workers)
		},
	}
}

func genericFloat[T core.Pixel](op *Op) routine {
	sat := core.FloatSaturator[T]()
	return routine{
		kind: routineGenericFloat,
		name: routineGenericFloat.String() + "/" + core.DepthOf[T]().String(),
		run: func(src, dst core.Image, origin image.Point) error {
			s, d, err := typed[T](src, dst)
			if err != nil {
				return err
			}
			return convolveFloat(s, d, op.window(origin, dst), op.floats.weights(), sat, op.workers)
		},
	}
}

func genericIntFor(op *Op, d core.Depth) routine {
	switch d {
	case core.Depth8u:
		return genericInt[uint8](op)
	case core.Depth16u:
		return genericInt[uint16](op)
	case core.Depth16s:
		return genericInt[int16](op)
	case core.Depth32s:
		return genericInt[int32](op)
	}
	return routine{}
}

func genericFloatFor(op *Op, d core.Depth) routine {
	switch d {
	case core.Depth8u:
		return genericFloat[uint8](op)
	case core.Depth16u:
		return genericFloat[uint16](op)
	case core.Depth16s:
		return genericFloat[int16](op)
	case core.Depth32s:
		return genericFloat[int32](op)
	case core.Depth32f:
		return genericFloat[float32](op)
	case core.Depth64f:
		return genericFloat[float64](op)
	}
	return routine{}
}

// accelerated wraps the backend so any backend error reruns the generic
// routine for the same depth.
func accelerated(op *Op, d core.Depth, fallback routine) routine {
	return routine{
		kind: routineAccelerated,
		name: op.accel.Name() + "/" + d.String(),
		run: func(src, dst core.Image, origin image.Point) error {
			err := op.accel.Convolve(Job{
				Src:     src,
				Dst:     dst,
				Origin:  origin,
				Mask:    op.mask,
				Anchor:  op.anchor,
				Preset:  op.preset,
				Weights: op.ints.weights(),
				Divisor: op.divisor,
			})
			if err == nil {
				return nil
			}
			op.log.WithFields(logrus.Fields{
				"accelerator": op.accel.Name(),
				"preset":      op.preset.String(),
				"depth":       d.String(),
				"fallback":    fallback.name,
			}).WithError(err).Warn("Accelerated convolution failed, using generic routine")
			return fallback.run(src, dst, origin)
		},
	}
}

// selectRoutine applies the dispatch policy for one depth. Float images
// always use the float weights without a divisor; integer images use the
// integer weights with the divisor whenever integer weights exist.
func (op *Op) selectRoutine(d core.Depth) routine {
	var r routine
	if !d.IsFloat() && op.ints != nil {
		r = genericIntFor(op, d)
	} else {
		r = genericFloatFor(op, d)
	}
	if op.accel != nil && op.preset.IsValid() && op.accel.CanAccelerate(op.preset, d) {
		r = accelerated(op, d, r)
	}
	return r
}

// rebuildTable replaces every entry at once.
func (op *Op) rebuildTable() {
	var t routineTable
	for _, d := range core.Depths() {
		t[d] = op.selectRoutine(d)
	}
	op.table = t

	if op.log != nil {
		fields := logrus.Fields{}
		for _, d := range core.Depths() {
			fields["routine_"+d.String()] = t[d].name
		}
		op.log.WithFields(fields).Debug("Dispatch table rebuilt")
	}
}
