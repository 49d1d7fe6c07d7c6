package tonemap

import (
	"fmt"
	"math"
	"time"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
)

// KeyValue is the middle-gray key the log-average luminance is mapped to.
const KeyValue = 0.18

// Stages is the precision-independent view of a Pipeline, so callers can
// pick float32 or float64 at runtime.
type Stages interface {
	Convert(f *Frame, cs ColorSpace) error
	ToneMap(f *Frame) (Stats, error)
	Clamp(f *Frame) error
	Encode(f *Frame, e Encoder) (*Raster, error)
}

var (
	_ Stages = (*Pipeline[float32])(nil)
	_ Stages = (*Pipeline[float64])(nil)
)

// Pipeline is the tone-reproduction algorithm at precision F. Every stage
// is a per-pixel function or a reduction dispatched through Exec; the
// stages run strictly one after another.
type Pipeline[F Float] struct {
	Exec    Executor
	Key     float64
	Policy  Policy
	Epsilon float64
	Trace   *Trace // optional per-pixel stage trace
}

func NewPipeline[F Float](exec Executor) *Pipeline[F] {
	return &Pipeline[F]{
		Exec:    exec,
		Key:     KeyValue,
		Policy:  PolicyEpsilon,
		Epsilon: DefaultEpsilon,
	}
}

func (p *Pipeline[F]) exec() Executor {
	if p.Exec == nil {
		return serial{}
	}
	return p.Exec
}

// ToneMap runs luminance, statistics, exposure scaling, compression and
// recombination over f in place, and returns the scene statistics.
func (p *Pipeline[F]) ToneMap(f *Frame) (Stats, error) {
	if err := f.Validate(); err != nil {
		return Stats{}, err
	}
	start := time.Now()
	p.Trace.input(f)

	lum, err := p.Luminance(f)
	if err != nil {
		return Stats{}, err
	}
	traceGrid(p.Trace, lum, func(r *TraceRecord) *float64 { return &r.Luminance })

	s, err := p.Statistics(lum)
	if err != nil {
		return Stats{}, err
	}

	if err := p.ScaleExposure(lum, s); err != nil {
		return s, err
	}
	traceGrid(p.Trace, lum, func(r *TraceRecord) *float64 { return &r.Scaled })

	if err := p.Compress(lum, s); err != nil {
		return s, err
	}
	traceGrid(p.Trace, lum, func(r *TraceRecord) *float64 { return &r.Ratio })

	if err := p.Recombine(f, lum); err != nil {
		return s, err
	}
	p.Trace.output(f)

	Logger().Debug("tonemap", "frame", f.String(), "elapsed", time.Since(start))
	return s, nil
}

// Luminance extracts the BT.709 relative luminance of every pixel.
func (p *Pipeline[F]) Luminance(f *Frame) (*emath.Grid[F], error) {
	lum := emath.NewGrid[F](f.W, f.H)
	vals := lum.Values()
	err := p.exec().Dispatch(f.Len(), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			j := 4 * i
			vals[i] = Luminance(F(f.Pix[j]), F(f.Pix[j+1]), F(f.Pix[j+2]))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("luminance: %w", err)
	}
	return lum, nil
}

// Statistics reduces the luminance field to its maximum and log-average,
// one partial per workgroup, merged by Reduce.
func (p *Pipeline[F]) Statistics(lum *emath.Grid[F]) (Stats, error) {
	vals := lum.Values()
	n := len(vals)
	parts := make([]Partial[F], p.exec().Groups(n))
	eps := F(p.Epsilon)
	err := p.exec().Dispatch(n, func(g, lo, hi int) {
		acc := NewPartial[F]()
		for i := lo; i < hi; i++ {
			acc.Add(i, vals[i], p.Policy, eps)
		}
		parts[g] = acc
	})
	if err != nil {
		return Stats{}, fmt.Errorf("statistics: %w", err)
	}

	s, err := Reduce(parts).Stats(lum.Dx())
	if err != nil {
		return Stats{}, err
	}
	Logger().Info("scene statistics", "max", s.MaxLuminance, "logavg", s.LogAverageLuminance, "groups", len(parts))
	return s, nil
}

// ExposureScale is the factor a/logAvg that maps the log-average
// luminance onto the key.
func ExposureScale(key float64, s Stats) (float64, error) {
	la := s.LogAverageLuminance
	if !(la > 0) || math.IsInf(la, 0) {
		return 0, &ExposureError{LogAverage: la}
	}
	return key / la, nil
}

func (p *Pipeline[F]) ScaleExposure(lum *emath.Grid[F], s Stats) error {
	scale, err := ExposureScale(p.Key, s)
	if err != nil {
		return err
	}
	k := F(scale)
	vals := lum.Values()
	err = p.exec().Dispatch(len(vals), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			vals[i] *= k
		}
	})
	if err != nil {
		return fmt.Errorf("scale exposure: %w", err)
	}
	return nil
}

// Compress replaces each scaled luminance with its compression ratio
// Ld/L', using the unscaled scene maximum as the white point.
func (p *Pipeline[F]) Compress(lum *emath.Grid[F], s Stats) error {
	wf := WhiteFactor(F(s.MaxLuminance))
	vals := lum.Values()
	err := p.exec().Dispatch(len(vals), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			vals[i] = CompressionRatio(vals[i], wf)
		}
	})
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	return nil
}

// Recombine scales the RGB of every pixel by its ratio. Alpha is kept.
func (p *Pipeline[F]) Recombine(f *Frame, ratios *emath.Grid[F]) error {
	vals := ratios.Values()
	if len(vals) != f.Len() {
		return fmt.Errorf("%w: %d ratios for %d pixels", ErrInvalidFrame, len(vals), f.Len())
	}
	err := p.exec().Dispatch(f.Len(), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			j, r := 4*i, vals[i]
			f.Pix[j] = float32(F(f.Pix[j]) * r)
			f.Pix[j+1] = float32(F(f.Pix[j+1]) * r)
			f.Pix[j+2] = float32(F(f.Pix[j+2]) * r)
		}
	})
	if err != nil {
		return fmt.Errorf("recombine: %w", err)
	}
	return nil
}

// Clamp is the baseline path: every color channel limited to [0,1].
func (p *Pipeline[F]) Clamp(f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	p.Trace.input(f)
	err := p.exec().Dispatch(f.Len(), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			j := 4 * i
			f.Pix[j] = float32(clampUnit(F(f.Pix[j])))
			f.Pix[j+1] = float32(clampUnit(F(f.Pix[j+1])))
			f.Pix[j+2] = float32(clampUnit(F(f.Pix[j+2])))
		}
	})
	if err != nil {
		return fmt.Errorf("clamp: %w", err)
	}
	p.Trace.output(f)
	return nil
}

// Encode turns display-referred linear values into integer samples.
func (p *Pipeline[F]) Encode(f *Frame, e Encoder) (*Raster, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := NewRaster(f.W, f.H, e.BitDepth)
	err := p.exec().Dispatch(f.Len(), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			for c := 0; c < 3; c++ {
				out.Pix[3*i+c] = EncodeValue(e, F(f.Pix[4*i+c]))
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	p.Trace.encoded(out)
	return out, nil
}
