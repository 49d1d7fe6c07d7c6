package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abworrall/hdr-tonemap/pkg/backend"
	"github.com/abworrall/hdr-tonemap/pkg/render"
	"github.com/abworrall/hdr-tonemap/pkg/source"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

var (
	fConfig      string
	fVerbosity   int
	fBackend     string
	fFallback    bool
	fWorkers     int
	fOutputDir   string
	fScene       string
	fPolicy      string
	fEpsilon     float64
	fGamma       float64
	fFormat      string
	fVariants    string
	fTransfer    string
	fColorSpace  string
	fCompare     bool
	fDumpHDR     bool
	fDumpGrids   bool
	fDebugPixels string
	fStdinFormat string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file; flags given on the command line override it")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")

	flag.StringVar(&fBackend, "backend", "scalar", "where to run the pipeline: scalar, parallel, kernel")
	flag.BoolVar(&fFallback, "fallback", false, "if the kernel backend is unavailable, run scalar instead of failing")
	flag.IntVar(&fWorkers, "workers", 0, "worker goroutines for parallel/kernel backends (0 = GOMAXPROCS)")

	flag.StringVar(&fOutputDir, "o", ".", "output directory")
	flag.StringVar(&fScene, "scene", "", "scene name used in output filenames (default: input basename)")
	flag.StringVar(&fPolicy, "policy", "epsilon", "non-positive luminance in statistics: epsilon or reject")
	flag.Float64Var(&fEpsilon, "epsilon", tonemap.DefaultEpsilon, "luminance substituted under the epsilon policy")
	flag.Float64Var(&fGamma, "gamma", tonemap.DefaultGamma, "exponent for the gamma transfer")
	flag.StringVar(&fFormat, "format", "p3", "output format: p3, p6 (8-bit only), png")
	flag.StringVar(&fVariants, "variants", "", "comma list of operators to render instead of the defaults: "+strings.Join(render.Operators, ","))
	flag.StringVar(&fTransfer, "transfer", "gamma", "transfer for -variants: linear, gamma, srgb")
	flag.StringVar(&fColorSpace, "colorspace", "rgb", "input channels: rgb or ycbcr709")

	flag.BoolVar(&fCompare, "compare", false, "also render on the scalar backend, and report the differences")
	flag.BoolVar(&fDumpHDR, "dumphdr", false, "write each working frame as a Radiance .hdr")
	flag.BoolVar(&fDumpGrids, "dumpgrids", false, "write luminance (and -compare diff) grids as PNG")
	flag.StringVar(&fDebugPixels, "debugpx", "", "trace pixels through the stages, e.g. 10,20;300,40")
	flag.StringVar(&fStdinFormat, "stdinformat", "exr", "format of an image read from '-' (stdin): exr, rgbe, pfm")
	flag.Parse()

	log.Printf("hdr-tonemap starting\n")
}

// applyFlags copies the flags that were given explicitly into the config.
func applyFlags(cfg *render.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Verbosity = fVerbosity
		case "backend":
			cfg.Backend = fBackend
		case "fallback":
			cfg.Fallback = fFallback
		case "workers":
			cfg.Workers = fWorkers
		case "o":
			cfg.OutputDir = fOutputDir
		case "scene":
			cfg.Scene = fScene
		case "policy":
			cfg.Policy = fPolicy
		case "epsilon":
			cfg.Epsilon = fEpsilon
		case "gamma":
			cfg.Gamma = fGamma
		case "format":
			cfg.Format = fFormat
		case "variants":
			cfg.Variants = render.VariantsFor(strings.Split(fVariants, ","), fTransfer)
		case "colorspace":
			cfg.ColorSpace = fColorSpace
		case "compare":
			cfg.Compare = fCompare
		case "dumphdr":
			cfg.DumpHDR = fDumpHDR
		case "dumpgrids":
			cfg.DumpGrids = fDumpGrids
		case "debugpx":
			cfg.DebugPixels, err = parsePoints(fDebugPixels)
		}
	})
	return err
}

func parsePoints(s string) ([]image.Point, error) {
	pts := []image.Point{}
	for _, pair := range strings.Split(s, ";") {
		xy := strings.Split(strings.TrimSpace(pair), ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("debugpx '%s': want x,y", pair)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(xy[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(xy[1]))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("debugpx '%s': want integers", pair)
		}
		pts = append(pts, image.Point{x, y})
	}
	return pts, nil
}

func setupLogging(verbosity int) {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	tonemap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func inputs(args []string) ([]*source.File, error) {
	files := []*source.File{}
	for _, arg := range args {
		if arg == "-" {
			frame, err := source.Decode(os.Stdin, fStdinFormat)
			if err != nil {
				return nil, err
			}
			files = append(files, source.FromFrame("stdin", frame))
			continue
		}
		paths, err := source.Expand(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			files = append(files, source.NewFile(p))
		}
	}
	return files, nil
}

func openBackend(cfg render.Config) (backend.Backend, backend.Kind, error) {
	kind := backend.Kind(cfg.Backend)
	be, err := backend.Open(kind, backend.Options{Workers: cfg.Workers, GroupSize: cfg.GroupSize})
	if err != nil && cfg.Fallback && errors.Is(err, backend.ErrUnavailable) {
		log.Printf("%v; falling back to the scalar backend", err)
		return backend.Sequential{}, backend.KindScalar, nil
	}
	return be, kind, err
}

func compareWithScalar(cfg render.Config, file *source.File, outs []render.Output) error {
	frame, err := file.Frame()
	if err != nil {
		return err
	}
	scene := cfg.Scene
	if scene == "" {
		scene = file.Name()
	}
	cfg.DumpHDR = false
	cfg.DebugPixels = nil
	ref, err := render.NewRenderer(cfg, backend.Sequential{}, backend.KindScalar).RenderFrame(frame, scene)
	if err != nil {
		return err
	}

	for i := range outs {
		d, err := render.Compare(ref[i].Raster, outs[i].Raster)
		if err != nil {
			return err
		}
		log.Printf("compare %s: %s", filepath.Base(outs[i].Path), d)
		if cfg.DumpGrids && d.Differing > 0 {
			name := filepath.Join(cfg.OutputDir, "diff-"+filepath.Base(outs[i].Path)+".png")
			if err := d.Grid.ToImg(fmt.Sprintf("%s vs scalar: %s", cfg.Backend, d), name); err != nil {
				return err
			}
		}
	}
	return nil
}

func run() error {
	cfg := render.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = render.LoadConfig(fConfig); err != nil {
			return err
		}
		log.Printf("Loaded base configuration from %s\n", fConfig)
	}
	if err := applyFlags(&cfg); err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}
	setupLogging(cfg.Verbosity)

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	if flag.NArg() == 0 {
		return fmt.Errorf("usage: hdr-tonemap [flags] <files or dirs...> ('-' reads stdin)")
	}
	files, err := inputs(flag.Args())
	if err != nil {
		return err
	}

	be, kind, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	r := render.NewRenderer(cfg, be, kind)
	for _, file := range files {
		log.Printf("Rendering %s on the %s backend", file.Path, kind)

		if cfg.Verbosity > 0 || cfg.DumpGrids {
			frame, err := file.Frame()
			if err != nil {
				return err
			}
			rep := render.NewReport(frame)
			log.Printf("%s: %s", file.Path, rep)
			if cfg.DumpGrids {
				name := filepath.Join(cfg.OutputDir, "lum-"+file.Name()+".png")
				if err := rep.DumpGrid(file.Path+" log2 luminance", name); err != nil {
					return err
				}
			}
		}

		outs, err := r.Render(file)
		if err != nil {
			return err
		}
		for _, o := range outs {
			log.Printf("wrote %s", o.Path)
		}
		if r.Trace != nil {
			log.Printf("Pixel trace (last variant):-\n%s", r.Trace)
		}

		if cfg.Compare {
			if err := compareWithScalar(cfg, file, outs); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
