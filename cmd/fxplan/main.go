// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fxplan compiles the clips of an HCL stack file, prints their
// render plans and optionally renders the layered result to a PNG with the
// software backend.
//
// Usage:
//
//	fxplan -stack title.hcl [-var strength=0.4] [-input in.png] [-output out.png]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph"
	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/backend/software"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/composite"
	"github.com/gogpu/fxgraph/internal/stackfile"
	"github.com/gogpu/fxgraph/render"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("fxplan: %v", err)
	}
}

// vars collects repeated -var name=value flags.
type vars map[string]float64

func (v vars) String() string { return fmt.Sprint(map[string]float64(v)) }

func (v vars) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=value, got %q", s)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	v[name] = f
	return nil
}

type options struct {
	stack     string
	input     string
	output    string
	width     int
	height    int
	maxStages int
	json      bool
	verbose   bool
	vars      vars
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{vars: vars{}}
	fs := flag.NewFlagSet("fxplan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.stack, "stack", "", "HCL stack file (required)")
	fs.StringVar(&opts.input, "input", "", "source PNG; a gray frame when empty")
	fs.StringVar(&opts.output, "output", "", "render the composite to this PNG")
	fs.IntVar(&opts.width, "width", 640, "viewport width when no input is given")
	fs.IntVar(&opts.height, "height", 360, "viewport height when no input is given")
	fs.IntVar(&opts.maxStages, "max-stages", 0, "stage limit per fused pass, 0 for none")
	fs.BoolVar(&opts.json, "json", false, "print plans as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging to stderr")
	fs.Var(opts.vars, "var", "stack variable as name=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.stack == "" {
		fs.Usage()
		return options{}, errors.New("-stack is required")
	}
	return opts, nil
}

// clipPlan is one compiled clip.
type clipPlan struct {
	Clip   string         `json:"clip"`
	Passes []compile.Pass `json:"passes"`
	Stats  compile.Stats  `json:"stats"`

	clip stackfile.Clip
	exec *render.Executor
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg := fxgraph.Config{Backend: software.New(software.WithMaxFusedStages(opts.maxStages))}
	if opts.verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	eng, err := fxgraph.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, eng.Close())
	}()

	stack, err := stackfile.Load(opts.stack, opts.vars)
	if err != nil {
		return err
	}
	plans, err := compileStack(eng, stack, opts.maxStages)
	if err != nil {
		return err
	}
	if err := printPlans(stdout, plans, opts.json); err != nil {
		return err
	}
	if opts.output == "" {
		return nil
	}
	return renderPNG(ctx, eng, plans, opts)
}

func compileStack(eng *fxgraph.Engine, stack *stackfile.Stack, maxStages int) ([]*clipPlan, error) {
	merger := compile.NewMerger(compile.WithMaxStages(maxStages))
	plans := make([]*clipPlan, 0, len(stack.Clips))
	for _, clip := range stack.Clips {
		b, err := clip.Graph(eng.Registry())
		if err != nil {
			return nil, err
		}
		passes, err := eng.Compile(b.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name, err)
		}
		exec := eng.NewExecutor()
		if err := exec.SetPasses(merger.Merge(passes)); err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name, err)
		}
		plans = append(plans, &clipPlan{
			Clip:   clip.Name,
			Passes: exec.Passes(),
			Stats:  merger.OptimizationStats(passes),
			clip:   clip,
			exec:   exec,
		})
	}
	return plans, nil
}

func printPlans(w io.Writer, plans []*clipPlan, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range plans {
		fmt.Fprintf(tw, "clip %s: %d passes (%d before merging, ratio %.2f)\n",
			p.Clip, len(p.Passes), p.Stats.TotalPasses, p.Stats.Ratio)
		fmt.Fprintln(tw, "  PASS\tSTAGES\tINPUTS\tOUTPUT")
		for _, pass := range p.Passes {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				pass.ID, strings.Join(pass.Program.Kernels(), "+"), strings.Join(pass.Inputs, ","), pass.Output)
		}
	}
	return tw.Flush()
}

func renderPNG(ctx context.Context, eng *fxgraph.Engine, plans []*clipPlan, opts options) (err error) {
	fc := render.FrameContext{Width: opts.width, Height: opts.height}
	if opts.input != "" {
		img, err := readPNG(opts.input)
		if err != nil {
			return err
		}
		fc.Source = backend.NewImageFrame(img)
		fc.Width, fc.Height = fc.Source.Width(), fc.Source.Height()
	} else {
		fc.Source = backend.NewSolidFrame(fc.Width, fc.Height, 128, 128, 128, 255)
	}

	pool := eng.Pool()
	layers := make([]composite.Layer, 0, len(plans))
	for _, p := range plans {
		tex, acqErr := pool.Acquire(fc.Width, fc.Height, p.exec.Format())
		if acqErr != nil {
			return acqErr
		}
		defer func() {
			err = multierr.Append(err, pool.Release(tex))
		}()
		if err := p.exec.ExecuteToTexture(ctx, fc, tex.Handle()); err != nil {
			return fmt.Errorf("clip %q: %w", p.Clip, err)
		}
		layers = append(layers, composite.Layer{
			Source:  tex.Handle(),
			Opacity: p.clip.Opacity,
			Mode:    p.clip.Mode,
			Z:       p.clip.Z,
			Label:   p.Clip,
		})
	}

	out, err := eng.Compose(ctx, layers, composite.Settings{Width: fc.Width, Height: fc.Height})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, eng.Release(out))
	}()
	pix, err := eng.Backend().ReadPixels(ctx, out.Handle())
	if err != nil {
		return err
	}
	return writePNG(opts.output, &image.NRGBA{
		Pix:    pix,
		Stride: fc.Width * 4,
		Rect:   image.Rect(0, 0, fc.Width, fc.Height),
	})
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return png.Encode(f, img)
}
