package emath

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Transfer functions (linear light -> display code values). Each
// channel in `v` is assumed to be in the range [0,1].

// GammaEncode is the plain power law, e.g. gamma=1/2.2
func GammaEncode(f, gamma float64) float64 {
	return math.Pow(f, gamma)
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
func SRGBEncode(v Vec3) Vec3 {
	c := colorful.LinearRgb(v[0], v[1], v[2])
	return Vec3{c.R, c.G, c.B}
}

// SRGBDecode undoes SRGBEncode.
func SRGBDecode(v Vec3) Vec3 {
	r, g, b := colorful.Color{R: v[0], G: v[1], B: v[2]}.LinearRgb()
	return Vec3{r, g, b}
}

func SRGBEncodeF64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}
