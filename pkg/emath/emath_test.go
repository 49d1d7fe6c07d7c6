package emath

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	g := NewGrid[float32](4, 3)
	assert.Equal(t, 4, g.Dx())
	assert.Equal(t, 3, g.Dy())
	assert.Equal(t, 12, g.Len())

	g.Set(3, 2, 7)
	assert.Equal(t, float32(7), g.Get(3, 2))
	assert.Equal(t, float32(7), g.Values()[11])

	c := g.Copy()
	c.Set(3, 2, 1)
	assert.Equal(t, float32(7), g.Get(3, 2))
	assert.Contains(t, g.Stats(), "grid[4x3")

	assert.Equal(t, 0, (&Grid[float64]{}).Dy())
}

func TestPercentile(t *testing.T) {
	g := NewGrid[float64](10, 10)
	for i := range g.Values() {
		g.Values()[99-i] = float64(i)
	}
	assert.Equal(t, 0.0, g.Percentile(0))
	assert.Equal(t, 49.0, g.Percentile(50))
	assert.Equal(t, 99.0, g.Percentile(100))
	assert.Equal(t, 99.0, g.Values()[0], "percentile leaves the grid alone")
}

func TestToImg(t *testing.T) {
	g := NewGrid[float64](40, 30)
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			g.Set(x, y, float64(x))
		}
	}
	path := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, g.ToImg("ramp", path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	assert.Error(t, NewGrid[float64](0, 0).ToImg("empty", path))
}

func TestMat3(t *testing.T) {
	id := Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	assert.Equal(t, YCbCr709ToRGB, id.Mult(YCbCr709ToRGB))
	assert.Equal(t, Vec3{1, 2, 3}, id.Apply(Vec3{1, 2, 3}))

	gray := YCbCr709ToRGB.Apply(Vec3{0.4, 0, 0})
	assert.InDelta(t, 0.4, gray[0], 1e-12)
	assert.InDelta(t, 0.4, gray[1], 1e-12)
	assert.InDelta(t, 0.4, gray[2], 1e-12)

	assert.InDelta(t, 1.0, Rec709Luminance.Dot(Vec3{1, 1, 1}), 1e-12)
}

func TestVec3Limits(t *testing.T) {
	v := Vec3{-1, 0.5, 3}
	v.FloorAt(0)
	v.CeilingAt(1)
	assert.Equal(t, Vec3{0, 0.5, 1}, v)
}

func TestTransfers(t *testing.T) {
	for _, f := range []float64{0, 0.001, 0.0031308, 0.18, 0.5, 1} {
		enc := SRGBEncode(Vec3{f, f, f})
		assert.InDelta(t, SRGBEncodeF64(f), enc[0], 1e-9, "f=%g", f)
		dec := SRGBDecode(enc)
		assert.InDelta(t, f, dec[1], 1e-9, "f=%g", f)
	}
	assert.InDelta(t, 0.4587, GammaEncode(0.18, 1/2.2), 1e-4)
	assert.Equal(t, 1.0, GammaEncode(1, 1/2.2))
}
