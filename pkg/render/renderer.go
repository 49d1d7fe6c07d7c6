// Package render turns one decoded HDR frame into the configured set of
// encoded output files.
package render

import (
	"fmt"
	"path/filepath"

	"github.com/abworrall/hdr-tonemap/pkg/backend"
	"github.com/abworrall/hdr-tonemap/pkg/pixdump"
	"github.com/abworrall/hdr-tonemap/pkg/source"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// Output is one encoded file, rendered but not necessarily written yet.
type Output struct {
	Variant string
	Path    string
	Format  pixdump.Format
	Stats   tonemap.Stats // zero for operators that don't reduce
	Raster  *tonemap.Raster
}

type Renderer struct {
	Config
	Exec      tonemap.Executor
	Precision int // 32 or 64 bit floats
	Trace     *tonemap.Trace
}

// NewRenderer binds a config to an executor. The kernel backend runs at
// float32, like the lanes it stands for; everything else at float64.
func NewRenderer(cfg Config, exec tonemap.Executor, kind backend.Kind) *Renderer {
	r := &Renderer{Config: cfg, Exec: exec, Precision: 64}
	if kind == backend.KindKernel {
		r.Precision = 32
	}
	if len(cfg.DebugPixels) > 0 {
		r.Trace = tonemap.NewTrace(cfg.DebugPixels...)
	}
	return r
}

func (r *Renderer) stages() tonemap.Stages {
	policy, _ := tonemap.ParsePolicy(r.Policy)
	if r.Precision == 32 {
		p := tonemap.NewPipeline[float32](r.Exec)
		p.Key, p.Policy, p.Epsilon, p.Trace = r.Key, policy, r.Epsilon, r.Trace
		return p
	}
	p := tonemap.NewPipeline[float64](r.Exec)
	p.Key, p.Policy, p.Epsilon, p.Trace = r.Key, policy, r.Epsilon, r.Trace
	return p
}

// Render produces and writes every variant of the file. Each variant's
// files are written as soon as it is rendered; a failing variant stops
// the run, leaving the variants before it on disk and writing nothing of
// its own.
func (r *Renderer) Render(file *source.File) ([]Output, error) {
	src, err := file.Frame()
	if err != nil {
		return nil, err
	}
	scene := r.Scene
	if scene == "" {
		scene = file.Name()
	}

	outs := []Output{}
	for _, v := range r.Variants {
		vouts, err := r.RenderVariant(src, scene, v)
		if err != nil {
			return outs, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		for _, o := range vouts {
			if err := pixdump.WriteFile(o.Path, o.Raster, o.Format); err != nil {
				return outs, err
			}
			tonemap.Logger().Info("wrote", "file", o.Path, "variant", o.Variant)
			outs = append(outs, o)
		}
	}
	return outs, nil
}

// RenderFrame renders every variant of src, each on its own copy, without
// writing anything.
func (r *Renderer) RenderFrame(src *tonemap.Frame, scene string) ([]Output, error) {
	outs := []Output{}
	for _, v := range r.Variants {
		vouts, err := r.RenderVariant(src, scene, v)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		outs = append(outs, vouts...)
	}
	return outs, nil
}

func (r *Renderer) RenderVariant(src *tonemap.Frame, scene string, v Variant) ([]Output, error) {
	stages := r.stages()
	frame := src.Clone()
	r.Trace.Reset()

	if err := stages.Convert(frame, tonemap.ColorSpace(r.ColorSpace)); err != nil {
		return nil, err
	}

	var stats tonemap.Stats
	var err error
	switch {
	case v.Operator == OpClamp:
		err = stages.Clamp(frame)
	case v.Operator == OpReinhardExtended:
		stats, err = stages.ToneMap(frame)
		if err == nil {
			tonemap.Logger().Info(stats.String(), "variant", v.Name)
		}
	case IsReference(v.Operator):
		frame, err = ApplyReference(v.Operator, frame)
	default:
		err = fmt.Errorf("no operator named '%s'", v.Operator)
	}
	if err != nil {
		return nil, err
	}

	if r.DumpHDR {
		name := fmt.Sprintf("%s-%s.hdr", v.Operator, scene)
		if err := pixdump.WriteRGBE(filepath.Join(r.OutputDir, name), frame); err != nil {
			return nil, err
		}
	}

	outs := []Output{}
	for _, depth := range v.BitDepths {
		ras, err := stages.Encode(frame, v.Encoder(depth))
		if err != nil {
			return nil, err
		}
		outs = append(outs, Output{
			Variant: v.Name,
			Path:    filepath.Join(r.OutputDir, v.FileName(scene, depth)),
			Format:  pixdump.Format(v.Format),
			Stats:   stats,
			Raster:  ras,
		})
		if r.Trace != nil {
			tonemap.Logger().Debug("trace", "variant", v.Name, "depth", depth, "pixels", r.Trace.String())
		}
	}
	return outs, nil
}
