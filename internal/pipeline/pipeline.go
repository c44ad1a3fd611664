// Sequential processing over the filter registry
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"image-convolution/internal/algorithms"
	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
	"image-convolution/internal/metrics"
)

// ErrNoSteps is returned when Process runs without any enabled step.
var ErrNoSteps = errors.New("pipeline has no enabled steps")

// ProcessingStep represents a sequential processing step
type ProcessingStep struct {
	Algorithm  string
	Parameters map[string]interface{}
	Enabled    bool
}

// Pipeline runs steps one after another, each on the previous output.
type Pipeline struct {
	mu          sync.RWMutex
	steps       []ProcessingStep
	opts        []convolution.Option
	metricsEval *metrics.Evaluator
	logger      logrus.FieldLogger

	processing bool
	cancel     context.CancelFunc
}

// New creates an empty pipeline. opts are passed to every operator the
// steps create. A nil logger discards output.
func New(logger logrus.FieldLogger, opts ...convolution.Option) *Pipeline {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Pipeline{
		steps:       make([]ProcessingStep, 0),
		opts:        opts,
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}
}

// AddStep adds an enabled step after validating it
func (p *Pipeline) AddStep(algorithm string, parameters map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.WithField("algorithm", algorithm).Info("PIPELINE: Adding sequential step")

	if !algorithms.IsValidAlgorithm(algorithm) {
		return errors.Wrap(algorithms.ErrUnknownAlgorithm, algorithm)
	}

	if err := algorithms.ValidateParameters(algorithm, parameters); err != nil {
		return errors.Wrap(err, "invalid parameters")
	}

	p.steps = append(p.steps, ProcessingStep{
		Algorithm:  algorithm,
		Parameters: parameters,
		Enabled:    true,
	})
	return nil
}

// SetEnabled toggles step i
func (p *Pipeline) SetEnabled(i int, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.steps) {
		return errors.Errorf("step %d out of range", i)
	}
	p.steps[i].Enabled = enabled
	return nil
}

// GetSteps returns sequential processing steps
func (p *Pipeline) GetSteps() []ProcessingStep {
	p.mu.RLock()
	defer p.mu.RUnlock()

	steps := make([]ProcessingStep, len(p.steps))
	copy(steps, p.steps)
	return steps
}

// Process applies the enabled steps to input. Metrics are keyed
// "<index>_<algorithm>_<metric>". Cancellation is checked between steps.
func (p *Pipeline) Process(ctx context.Context, input core.Image) (core.Image, map[string]float64, error) {
	if err := core.ValidateImage(input); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.processing {
		p.mu.Unlock()
		return nil, nil, errors.New("pipeline is already processing")
	}
	p.processing = true
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.processing = false
		p.cancel = nil
		p.mu.Unlock()
	}()

	return p.processSequential(ctx, input)
}

func (p *Pipeline) processSequential(ctx context.Context, input core.Image) (core.Image, map[string]float64, error) {
	current := input
	processMetrics := make(map[string]float64)

	steps := p.GetSteps()
	p.logger.WithField("step_count", len(steps)).Debug("PIPELINE: Processing sequential steps")

	ran := 0
	for i, step := range steps {
		select {
		case <-ctx.Done():
			p.logger.Debug("PIPELINE: Sequential processing cancelled")
			return nil, nil, ctx.Err()
		default:
		}

		log := p.logger.WithFields(logrus.Fields{"step": i, "algorithm": step.Algorithm})
		if !step.Enabled {
			log.Debug("PIPELINE: Skipping disabled step")
			continue
		}

		start := time.Now()
		result, err := algorithms.Apply(step.Algorithm, current, step.Parameters, p.opts...)
		if err != nil {
			log.WithError(err).Error("PIPELINE: Sequential step failed")
			return nil, nil, errors.Wrapf(err, "step %d (%s)", i, step.Algorithm)
		}

		if origin, err := stepOrigin(current, step); err == nil {
			for k, v := range p.metricsEval.EvaluateStep(current, result, step.Algorithm, origin) {
				processMetrics[fmt.Sprintf("%d_%s_%s", i, step.Algorithm, k)] = v
			}
		} else {
			log.WithError(err).Warn("PIPELINE: Skipping step metrics")
		}

		log.WithFields(logrus.Fields{
			"duration": time.Since(start),
			"size":     result.Size(),
			"depth":    result.Depth().String(),
		}).Debug("PIPELINE: Step completed")

		current = result
		ran++
	}

	if ran == 0 {
		return nil, nil, ErrNoSteps
	}
	return current, processMetrics, nil
}

// stepOrigin locates the input pixel the step's first output pixel was
// centered on.
func stepOrigin(input core.Image, step ProcessingStep) (image.Point, error) {
	mask, anchor, err := algorithms.Footprint(step.Algorithm, step.Parameters)
	if err != nil {
		return image.Point{}, err
	}
	origin, _, err := core.NeighborhoodROI(input, mask, anchor)
	return origin, err
}

// IsProcessing returns current processing state
func (p *Pipeline) IsProcessing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processing
}

// Stop cancels a running Process call before its next step
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("PIPELINE: Stopping processing")
	if p.cancel != nil {
		p.cancel()
	}
}
