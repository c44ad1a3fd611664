package convolution

import (
	"image"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"image-convolution/internal/core"
)

// Op applies a 2-D linear filter to multi-channel images.
//
// An Op holds one kernel at a time. Reconfiguring validates first and then
// replaces mask size, anchor, kind, divisor, owned buffers and dispatch table
// together; a rejected call leaves the previous kernel in place.
//
// An Op is not safe for concurrent use. Separate Ops are independent.
type Op struct {
	log       logrus.FieldLogger
	accel     Accelerator
	clipToROI bool
	workers   int

	configured bool
	mask       image.Point
	anchor     image.Point
	kind       KernelKind
	preset     Preset
	buffered   bool
	divisor    int

	ints   buffer[int]
	floats buffer[float32]
	// refreshMirror is set for borrowed integer kernels: the float weights
	// are regenerated before every run on a float image.
	refreshMirror bool

	table routineTable
	stats BufferStats
}

// New creates an operator without a kernel. Apply fails until one of the
// Set*Kernel methods succeeds.
func New(opts ...Option) *Op {
	op := &Op{
		log:       discardLogger(),
		clipToROI: true,
		workers:   runtime.GOMAXPROCS(0),
		preset:    PresetCustom,
		divisor:   1,
	}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// NewFixed creates an operator configured with a built-in preset.
func NewFixed(p Preset, opts ...Option) (*Op, error) {
	op := New(opts...)
	if err := op.SetFixedKernel(p); err != nil {
		return nil, err
	}
	return op, nil
}

// NewInteger creates an operator configured with an integer kernel.
func NewInteger(data []int, maskSize image.Point, divisor int, buffered bool, opts ...Option) (*Op, error) {
	op := New(opts...)
	if err := op.SetIntegerKernel(data, maskSize, divisor, buffered); err != nil {
		return nil, err
	}
	return op, nil
}

// NewFloat creates an operator configured with a float kernel.
func NewFloat(data []float32, maskSize image.Point, buffered bool, opts ...Option) (*Op, error) {
	op := New(opts...)
	if err := op.SetFloatKernel(data, maskSize, buffered); err != nil {
		return nil, err
	}
	return op, nil
}

// sameShape reports whether existing buffers can be reused for a kernel
// with the given properties.
func (op *Op) sameShape(size image.Point, named, buffered bool, kind KernelKind) bool {
	return op.configured &&
		op.mask == size &&
		op.preset.IsValid() == named &&
		op.buffered == buffered &&
		op.kind == kind
}

func (op *Op) configure(size image.Point, preset Preset, buffered bool, kind KernelKind, divisor int) bool {
	reuse := op.sameShape(size, preset.IsValid(), buffered, kind)
	if !reuse {
		op.dropBuffers()
	}
	op.configured = true
	op.mask = size
	op.anchor = AnchorOf(size)
	op.preset = preset
	op.buffered = buffered
	op.kind = kind
	op.divisor = divisor
	return reuse
}

// SetFixedKernel configures one of the built-in presets. The preset weights
// are copied into owned buffers together with their float mirror.
func (op *Op) SetFixedKernel(p Preset) error {
	if !p.IsValid() {
		return errors.Wrapf(ErrInvalidArgument, "unsupported preset %d", p)
	}
	pk := presetTable[p]
	size := p.Size()
	n := size.X * size.Y

	reuse := op.configure(size, p, true, KindInteger, pk.divisor)
	ints := ensureOwned(op.ints, n, &op.stats)
	copy(ints.data, pk.weights)
	floats := ensureOwned(op.floats, n, &op.stats)
	fillMirror(floats.data, ints.data, pk.divisor)
	op.ints, op.floats = ints, floats
	op.refreshMirror = false

	op.logConfigured(reuse)
	op.rebuildTable()
	return nil
}

// SetIntegerKernel configures an integer kernel normalized by divisor.
// With buffered set the data is copied; otherwise the operator keeps using
// the caller's slice, which may be changed between Apply calls.
func (op *Op) SetIntegerKernel(data []int, maskSize image.Point, divisor int, buffered bool) error {
	if err := validateMask(len(data), maskSize); err != nil {
		return err
	}
	if divisor == 0 {
		return errors.WithStack(ErrDivisionByZero)
	}
	if err := checkWeightRange(data); err != nil {
		return err
	}
	n := len(data)

	reuse := op.configure(maskSize, PresetCustom, buffered, KindInteger, divisor)
	if buffered {
		ints := ensureOwned(op.ints, n, &op.stats)
		copy(ints.data, data)
		floats := ensureOwned(op.floats, n, &op.stats)
		fillMirror(floats.data, ints.data, divisor)
		op.ints, op.floats = ints, floats
		op.refreshMirror = false
	} else {
		// a previous mirror stays allocated and is refreshed before use
		op.ints = &borrowed[int]{data: data}
		op.refreshMirror = true
	}

	op.logConfigured(reuse)
	op.rebuildTable()
	return nil
}

// SetFloatKernel configures a float kernel. Float kernels are never
// normalized. A buffered kernel whose weights are all integral additionally
// gets integer weights so integer images run the exact integer routine.
func (op *Op) SetFloatKernel(data []float32, maskSize image.Point, buffered bool) error {
	if err := validateMask(len(data), maskSize); err != nil {
		return err
	}
	n := len(data)

	reuse := op.configure(maskSize, PresetCustom, buffered, KindFloat, 1)
	op.refreshMirror = false
	if !buffered {
		op.floats = &borrowed[float32]{data: data}
		releaseBuffer(op.ints, &op.stats)
		op.ints = nil
	} else {
		floats := ensureOwned(op.floats, n, &op.stats)
		copy(floats.data, data)
		op.floats = floats
		if isIntegral(data) && floatWeightsFit(data) {
			ints := ensureOwned(op.ints, n, &op.stats)
			for i, v := range data {
				ints.data[i] = int(v)
			}
			op.ints = ints
		} else {
			releaseBuffer(op.ints, &op.stats)
			op.ints = nil
		}
	}

	op.logConfigured(reuse)
	op.rebuildTable()
	return nil
}

// dropBuffers drops every kernel buffer. Only owned buffers are counted
// as released; borrowed caller memory is left alone.
func (op *Op) dropBuffers() {
	releaseBuffer(op.ints, &op.stats)
	releaseBuffer(op.floats, &op.stats)
	op.ints = nil
	op.floats = nil
	op.refreshMirror = false
}

// ReleaseBuffers releases all owned buffers and clears the kernel. Apply
// fails until a kernel is configured again. Calling it more than once is
// harmless.
func (op *Op) ReleaseBuffers() {
	op.dropBuffers()
	op.configured = false
	op.preset = PresetCustom
	op.table = routineTable{}
}

// Close is ReleaseBuffers.
func (op *Op) Close() {
	op.ReleaseBuffers()
}

func (op *Op) logConfigured(reuse bool) {
	op.log.WithFields(logrus.Fields{
		"kernel":   op.preset.String(),
		"kind":     op.kind.String(),
		"mask":     op.mask,
		"anchor":   op.anchor,
		"divisor":  op.divisor,
		"buffered": op.buffered,
		"reused":   reuse,
		"buffers":  op.stats.Live(),
	}).Debug("Kernel configured")
}

// AnchorOf returns the anchor every kernel of the given mask size uses.
func AnchorOf(mask image.Point) image.Point {
	return image.Pt(mask.X/2, mask.Y/2)
}

// MaskSize returns the current mask size.
func (op *Op) MaskSize() image.Point { return op.mask }

// Anchor returns the mask position aligned with each output pixel.
func (op *Op) Anchor() image.Point { return op.anchor }

// Kind returns the numeric kind of the current kernel.
func (op *Op) Kind() KernelKind { return op.kind }

// Preset returns the current preset, or false for custom kernels.
func (op *Op) Preset() (Preset, bool) { return op.preset, op.preset.IsValid() }

// Divisor returns the normalization divisor; 1 for float kernels.
func (op *Op) Divisor() int { return op.divisor }

// Buffered reports whether the kernel data is owned by the operator.
func (op *Op) Buffered() bool { return op.buffered }

// BufferStats returns the owned buffer counters.
func (op *Op) BufferStats() BufferStats { return op.stats }

// Routine returns the name of the routine selected for depth d, or "" if none.
func (op *Op) Routine(d core.Depth) string {
	if !d.IsValid() {
		return ""
	}
	return op.table[d].name
}

// Apply convolves the ROI of src into the ROI of dst. dst must already have
// the source depth and channel count and a ROI of exactly the output size.
func (op *Op) Apply(src, dst core.Image) error {
	r, err := op.routineFor(src)
	if err != nil {
		return err
	}
	origin, size, err := core.NeighborhoodROI(src, op.mask, op.anchor)
	if err != nil {
		return err
	}
	if err := core.CheckCompatible(dst, src.Depth(), size, src.Channels()); err != nil {
		return err
	}
	return op.run(r, src, dst, origin)
}

// ApplyAlloc convolves src into *dst, allocating or reshaping *dst as
// needed. A nil *dst always gets a new image.
func (op *Op) ApplyAlloc(src core.Image, dst *core.Image) error {
	if dst == nil {
		return errors.Wrap(ErrInvalidArgument, "nil destination handle")
	}
	r, err := op.routineFor(src)
	if err != nil {
		return err
	}
	origin, size, err := core.NeighborhoodROI(src, op.mask, op.anchor)
	if err != nil {
		return err
	}

	imageSize := size
	roi := image.Rectangle{Max: size}
	if !op.clipToROI {
		imageSize = src.Size()
		roi = image.Rectangle{Min: origin, Max: origin.Add(size)}
	}
	if err := core.Prepare(dst, src.Depth(), imageSize, src.Channels(), roi); err != nil {
		return err
	}
	return op.run(r, src, *dst, origin)
}

func (op *Op) routineFor(src core.Image) (routine, error) {
	if src == nil {
		return routine{}, errors.Wrap(ErrInvalidArgument, "nil source")
	}
	if !op.configured {
		return routine{}, errors.Wrap(ErrInvalidArgument, "no kernel configured")
	}
	d := src.Depth()
	if !d.IsValid() || op.table[d].run == nil {
		return routine{}, errors.Wrapf(ErrUnsupportedDepth, "depth %s", d)
	}
	return op.table[d], nil
}

func (op *Op) run(r routine, src, dst core.Image, origin image.Point) error {
	if op.refreshMirror && src.Depth().IsFloat() {
		ints := op.ints.weights()
		floats := ensureOwned(op.floats, len(ints), &op.stats)
		fillMirror(floats.data, ints, op.divisor)
		op.floats = floats
	}

	op.log.WithFields(logrus.Fields{
		"routine": r.name,
		"origin":  origin,
		"roi":     dst.ROI(),
	}).Debug("Applying convolution")

	return r.run(src, dst, origin)
}
