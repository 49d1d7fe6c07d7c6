package tonemap

import (
	"fmt"
	"image"
	"math"
)

// Policy decides what statistics do with a non-positive luminance,
// whose logarithm is undefined.
type Policy string

const (
	PolicyEpsilon Policy = "epsilon" // substitute Epsilon in the log-sum
	PolicyReject  Policy = "reject"  // fail with a *LuminanceError
)

const DefaultEpsilon = 1e-6

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyEpsilon, PolicyReject:
		return Policy(s), nil
	case "":
		return PolicyEpsilon, nil
	}
	return "", fmt.Errorf("unknown luminance policy '%s' (want epsilon or reject)", s)
}

// Stats is the scene summary produced by the reduction.
type Stats struct {
	MaxLuminance        float64
	LogAverageLuminance float64 // geometric mean, exp(mean(ln L))
}

func (s Stats) String() string {
	return fmt.Sprintf("Maximum Scene Brightness: %f, Average Scene Brightness: %f", s.MaxLuminance, s.LogAverageLuminance)
}

// Partial is the reduction state of one workgroup. Partials merge with
// max and + only, so any merge order gives the same totals in exact
// arithmetic; Reduce fixes the order so floating point does too.
type Partial[F Float] struct {
	Max    F
	LogSum F
	N      int

	Bad      int // index of the first rejected sample, -1 if none
	BadValue F
}

func NewPartial[F Float]() Partial[F] {
	return Partial[F]{Max: negInf[F](), Bad: -1}
}

// Add accumulates sample l at pixel index i. The max always sees the raw
// sample; only the log-sum sees a substituted epsilon.
func (a *Partial[F]) Add(i int, l F, pol Policy, eps F) {
	if l > a.Max {
		a.Max = l
	}
	a.N++
	if l <= 0 {
		if pol == PolicyReject {
			if a.Bad < 0 || i < a.Bad {
				a.Bad, a.BadValue = i, l
			}
			return
		}
		l = eps
	}
	a.LogSum += logF(l)
}

func (a Partial[F]) Merge(b Partial[F]) Partial[F] {
	out := a
	if b.Max > out.Max {
		out.Max = b.Max
	}
	out.LogSum += b.LogSum
	out.N += b.N
	if b.Bad >= 0 && (out.Bad < 0 || b.Bad < out.Bad) {
		out.Bad, out.BadValue = b.Bad, b.BadValue
	}
	return out
}

// Reduce merges partials pairwise, stride doubling, the same shape a
// workgroup tree reduction takes.
func Reduce[F Float](parts []Partial[F]) Partial[F] {
	if len(parts) == 0 {
		return NewPartial[F]()
	}
	buf := make([]Partial[F], len(parts))
	copy(buf, parts)
	for stride := 1; stride < len(buf); stride *= 2 {
		for i := 0; i+stride < len(buf); i += 2 * stride {
			buf[i] = buf[i].Merge(buf[i+stride])
		}
	}
	return buf[0]
}

// Stats finalizes a fully merged partial; width maps a rejected sample
// index back to its pixel.
func (a Partial[F]) Stats(width int) (Stats, error) {
	if a.Bad >= 0 {
		pos := image.Point{}
		if width > 0 {
			pos = image.Point{a.Bad % width, a.Bad / width}
		}
		return Stats{}, &LuminanceError{Pos: pos, Value: float64(a.BadValue)}
	}
	if a.N == 0 {
		return Stats{}, &ExposureError{LogAverage: math.NaN()}
	}
	return Stats{
		MaxLuminance:        float64(a.Max),
		LogAverageLuminance: math.Exp(float64(a.LogSum) / float64(a.N)),
	}, nil
}
