package emath

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"gonum.org/v1/gonum/floats"
)

// Float is the set of precisions the pipeline can be evaluated at.
type Float interface {
	~float32 | ~float64
}

// A Grid is a 2D field of scalars (luminances, ratios, diffs), stored
// row-major so that index y*Dx()+x matches the pixel index of a Frame.
type Grid[F Float] struct {
	stride int
	values []F
}

func NewGrid[F Float](w, h int) *Grid[F] {
	return &Grid[F]{
		stride: w,
		values: make([]F, w*h),
	}
}

func (g *Grid[F]) Set(x, y int, v F) { g.values[g.stride*y+x] = v }
func (g *Grid[F]) Get(x, y int) F    { return g.values[g.stride*y+x] }
func (g *Grid[F]) Dx() int           { return g.stride }
func (g *Grid[F]) Len() int          { return len(g.values) }

func (g *Grid[F]) Dy() int {
	if g.stride == 0 {
		return 0
	}
	return len(g.values) / g.stride
}

// Values exposes the backing slice; per-pixel stages index it directly.
func (g *Grid[F]) Values() []F { return g.values }

// Float64s returns a float64 copy of the values, whatever the grid precision.
func (g *Grid[F]) Float64s() []float64 {
	out := make([]float64, len(g.values))
	for i, v := range g.values {
		out[i] = float64(v)
	}
	return out
}

func (g *Grid[F]) Copy() *Grid[F] {
	out := &Grid[F]{stride: g.stride, values: make([]F, len(g.values))}
	copy(out.values, g.values)
	return out
}

// Percentile returns the value that prct percent of the grid lies at or
// below (nearest rank, no interpolation).
func (g *Grid[F]) Percentile(prct float64) F {
	if len(g.values) == 0 {
		return 0
	}
	vals := g.Copy().values
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })

	i := int(prct / 100.0 * float64(len(vals)-1))
	if i < 0 {
		i = 0
	} else if i >= len(vals) {
		i = len(vals) - 1
	}
	return vals[i]
}

func (g *Grid[F]) Stats() string {
	if len(g.values) == 0 {
		return fmt.Sprintf("grid[%dx%d, empty]", g.Dx(), g.Dy())
	}
	vals := g.Float64s()
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}]", g.Dx(), g.Dy(), floats.Min(vals), floats.Max(vals))
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision. The title is drawn in the top left corner.
func (g *Grid[F]) ToImg(title, filename string) error {
	if len(g.values) == 0 {
		return fmt.Errorf("grid ToImg '%s': empty grid", filename)
	}

	vals := g.Float64s()
	min, max := floats.Min(vals), floats.Max(vals)
	span := max - min

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{g.Dx(), g.Dy()}})
	for x := 0; x < g.Dx(); x++ {
		for y := 0; y < g.Dy(); y++ {
			gray := 0.0
			if span > 0 {
				gray = SRGBEncodeF64((float64(g.Get(x, y)) - min) / span)
			}
			v := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{v, v, v, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 0.2, 0.2)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
