package tonemap

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
)

// Float is the precision a Pipeline evaluates at: float64 for the scalar
// reference path, float32 for kernel lanes.
type Float = emath.Float

// The helpers below pick float32 math when F is float32, so that a
// float32 pipeline never silently widens to float64 mid-stage.

func logF[F Float](v F) F {
	if x, ok := any(v).(float32); ok {
		return F(math32.Log(x))
	}
	return F(math.Log(float64(v)))
}

func powF[F Float](v, e F) F {
	if x, ok := any(v).(float32); ok {
		return F(math32.Pow(x, float32(e)))
	}
	return F(math.Pow(float64(v), float64(e)))
}

func negInf[F Float]() F {
	return F(math.Inf(-1))
}

// clampUnit maps v into [0,1]; NaN goes to 0.
func clampUnit[F Float](v F) F {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func srgbF[F Float](v F) F {
	if x, ok := any(v).(float32); ok {
		if x <= 0.0031308 {
			return F(12.92 * x)
		}
		return F(1.055*math32.Pow(x, 1.0/2.4) - 0.055)
	}
	return F(emath.SRGBEncodeF64(float64(v)))
}
