package main

import (
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"image-convolution/internal/algorithms"
	"image-convolution/internal/config"
	"image-convolution/internal/convolution"
	"image-convolution/internal/core"
	imageio "image-convolution/internal/io"
	"image-convolution/internal/metrics"
	"image-convolution/internal/pipeline"
)

// accelerators holds the backends compiled into this binary.
var accelerators = map[string]func() convolution.Accelerator{}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.Bool(flagDebug) {
		cfg.Debug = true
	}
	if c.IsSet(flagAccel) {
		cfg.Accelerator = c.String(flagAccel)
	}
	if c.Bool(flagNoClip) {
		cfg.ClipToROI = false
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func operatorOptions(cfg *config.Config, logger logrus.FieldLogger) ([]convolution.Option, error) {
	opts := []convolution.Option{
		convolution.WithLogger(logger),
		convolution.WithClipToROI(cfg.ClipToROI),
		convolution.WithWorkers(cfg.Workers),
	}
	if cfg.Accelerator == config.AcceleratorNone {
		return opts, nil
	}
	factory, ok := accelerators[cfg.Accelerator]
	if !ok {
		return nil, errors.Errorf("accelerator %q is not built into this binary", cfg.Accelerator)
	}
	return append(opts, convolution.WithAccelerator(factory())), nil
}

func applyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := initLogger(c.App.ErrWriter, cfg.Debug, cfg.LogLevel)
	logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"accelerator": cfg.Accelerator,
		"clip_to_roi": cfg.ClipToROI,
	}).Info("Starting convolve")

	opts, err := operatorOptions(cfg, logger)
	if err != nil {
		return err
	}

	loader := imageio.NewImageLoader(logger)
	load := loader.LoadImage
	if c.Bool(flagGray) {
		load = loader.LoadImageGrayscale
	}
	src, err := load(c.String(flagIn))
	if err != nil {
		return err
	}
	if name := c.String(flagDepth); name != "" {
		d, ok := core.ParseDepth(name)
		if !ok {
			return errors.Errorf("unknown depth %q", name)
		}
		if src, err = core.Convert(src, d); err != nil {
			return err
		}
	}
	if s := c.String(flagROI); s != "" {
		roi, err := parseROI(s)
		if err != nil {
			return err
		}
		if err := src.SetROI(roi); err != nil {
			return err
		}
	}

	var out core.Image
	switch {
	case c.IsSet(flagPreset):
		p, ok := convolution.ParsePreset(c.String(flagPreset))
		if !ok {
			return errors.Wrapf(convolution.ErrInvalidArgument, "unknown preset %q", c.String(flagPreset))
		}
		op, err := convolution.NewFixed(p, opts...)
		if err != nil {
			return err
		}
		defer op.Close()
		logger.WithFields(logrus.Fields{
			"preset":  p.String(),
			"routine": op.Routine(src.Depth()),
		}).Debug("Applying preset")
		if err := op.ApplyAlloc(src, &out); err != nil {
			return err
		}

	case len(cfg.Steps) > 0:
		pl := pipeline.New(logger, opts...)
		for i, step := range cfg.Steps {
			if err := pl.AddStep(step.Algorithm, step.Params); err != nil {
				return errors.Wrapf(err, "step %d", i)
			}
			if err := pl.SetEnabled(i, step.IsEnabled()); err != nil {
				return err
			}
		}
		var stepMetrics map[string]float64
		out, stepMetrics, err = pl.Process(c.Context, src)
		if err != nil {
			return err
		}
		logger.WithFields(toFields(stepMetrics)).Info("Pipeline metrics")

	default:
		return errors.New("either --preset or a config with steps is required")
	}

	return loader.SaveImage(out, c.String(flagOut))
}

func toFields(m map[string]float64) logrus.Fields {
	fields := make(logrus.Fields, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return fields
}

func presetsAction(c *cli.Context) error {
	for _, p := range convolution.Presets() {
		size := p.Size()
		fmt.Fprintf(c.App.Writer, "%-11s %dx%d  divisor %-4d %v\n", p, size.X, size.Y, p.Divisor(), p.Weights())
	}
	return nil
}

func filtersAction(c *cli.Context) error {
	groups := algorithms.GetAlgorithmsByCategory()
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(c.App.Writer, "[%s]\n", category)
		for _, name := range groups[category] {
			alg, ok := algorithms.Get(name)
			if !ok {
				continue
			}
			fmt.Fprintf(c.App.Writer, "%s: %s\n", name, alg.GetDescription())
			for _, info := range alg.GetParameterInfo() {
				fmt.Fprintf(c.App.Writer, "  %-8s %-6s default %v  %s\n", info.Name, info.Type, info.Default, info.Description)
			}
		}
	}
	return nil
}

func metricsAction(c *cli.Context) error {
	e := metrics.NewEvaluator()
	info := e.GetMetricInfo()
	for _, name := range e.Names() {
		m := info[name]
		direction := "lower is better"
		if m.HigherBetter {
			direction = "higher is better"
		}
		fmt.Fprintf(c.App.Writer, "%-14s [%g, %g] %s  %s\n", name, m.Range[0], m.Range[1], direction, m.Description)
	}
	return nil
}

func formatsAction(c *cli.Context) error {
	loader := imageio.NewImageLoader(initLogger(c.App.ErrWriter, false, "warn"))
	fmt.Fprintln(c.App.Writer, strings.Join(loader.GetSupportedFormats(), " "))
	return nil
}

func compareAction(c *cli.Context) error {
	logger := initLogger(c.App.ErrWriter, c.Bool(flagDebug), "warn")
	loader := imageio.NewImageLoader(logger)

	a, err := loader.LoadImage(c.String(flagA))
	if err != nil {
		return err
	}
	b, err := loader.LoadImage(c.String(flagB))
	if err != nil {
		return err
	}

	report := metrics.NewEvaluator().GenerateReport(a, b)
	if len(report.Metrics) == 0 {
		return errors.Errorf("images cannot be compared: %v vs %v with %d and %d channels",
			a.Size(), b.Size(), a.Channels(), b.Channels())
	}

	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.App.Writer, "%-14s %g\n", name, report.Metrics[name])
	}
	fmt.Fprintf(c.App.Writer, "%-14s %s\n", "level", report.Level)
	return nil
}

// parseROI reads "x,y,w,h".
func parseROI(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.Errorf("roi %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Rectangle{}, errors.Wrapf(err, "roi %q", s)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, errors.Errorf("roi %q: empty", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
