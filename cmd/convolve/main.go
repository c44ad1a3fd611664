// convolve applies linear filters to image files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	AppName    = "convolve"
	AppVersion = "1.0.0"

	flagDebug   = "debug"
	flagIn      = "in"
	flagOut     = "out"
	flagPreset  = "preset"
	flagConfig  = "config"
	flagDepth   = "depth"
	flagROI     = "roi"
	flagNoClip  = "no-clip"
	flagAccel   = "accel"
	flagWorkers = "workers"
	flagGray    = "gray"
	flagA       = "a"
	flagB       = "b"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      AppName,
		Usage:     "apply convolution filters to images",
		Version:   AppVersion,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "filter an image with a preset or a configured pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagIn, Usage: "input `FILE`", Required: true},
					&cli.StringFlag{Name: flagOut, Usage: "output `FILE`", Required: true},
					&cli.StringFlag{Name: flagPreset, Usage: "built-in kernel, e.g. gauss3x3"},
					&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "load pipeline configuration from `FILE`"},
					&cli.StringFlag{Name: flagDepth, Usage: "convert the input to `DEPTH` (8u, 16u, 16s, 32s, 32f, 64f)"},
					&cli.StringFlag{Name: flagROI, Usage: "source region as `X,Y,W,H`"},
					&cli.BoolFlag{Name: flagNoClip, Usage: "keep the input size and write the result into a ROI"},
					&cli.StringFlag{Name: flagAccel, Usage: "accelerator: none or opencv"},
					&cli.IntFlag{Name: flagWorkers, Usage: "goroutines per filter, 0 for GOMAXPROCS"},
					&cli.BoolFlag{Name: flagGray, Usage: "load the input as single channel 8u"},
				},
				Action: applyAction,
			},
			{
				Name:   "presets",
				Usage:  "list the built-in kernels",
				Action: presetsAction,
			},
			{
				Name:   "filters",
				Usage:  "list the filters usable in pipeline steps",
				Action: filtersAction,
			},
			{
				Name:   "metrics",
				Usage:  "list the comparison metrics",
				Action: metricsAction,
			},
			{
				Name:   "formats",
				Usage:  "list the supported image file formats",
				Action: formatsAction,
			},
			{
				Name:  "compare",
				Usage: "compare two images",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagA, Usage: "reference `FILE`", Required: true},
					&cli.StringFlag{Name: flagB, Usage: "candidate `FILE`", Required: true},
				},
				Action: compareAction,
			},
		},
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(out io.Writer, debugMode bool, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
		return logger
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}
