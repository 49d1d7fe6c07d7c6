package render

import (
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-tonemap/pkg/backend"
	"github.com/abworrall/hdr-tonemap/pkg/pixdump"
	"github.com/abworrall/hdr-tonemap/pkg/source"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

func twoPixelFrame() *tonemap.Frame {
	f := tonemap.NewFrame(2, 1)
	f.SetRGBA(0, 0, 1, 1, 1, 1)
	f.SetRGBA(1, 0, 0, 0, 0, 1)
	return f
}

func randomFrame(w, h int) *tonemap.Frame {
	rng := rand.New(rand.NewSource(7))
	f := tonemap.NewFrame(w, h)
	for i := 0; i < f.Len(); i++ {
		for c := 0; c < 3; c++ {
			f.Pix[4*i+c] = float32(0.01 + rng.ExpFloat64())
		}
		f.Pix[4*i+3] = 1
	}
	return f
}

func finalized(t *testing.T, mutate func(*Config)) Config {
	t.Helper()
	c := NewConfig()
	if mutate != nil {
		mutate(&c)
	}
	require.NoError(t, c.Finalize())
	return c
}

func TestRenderFrameDefaults(t *testing.T) {
	r := NewRenderer(finalized(t, nil), backend.Sequential{}, backend.KindScalar)
	outs, err := r.RenderFrame(twoPixelFrame(), "chapel")
	require.NoError(t, err)
	require.Len(t, outs, 6)

	names := []string{}
	for _, o := range outs {
		names = append(names, filepath.Base(o.Path))
	}
	assert.Equal(t, []string{
		"clamped-chapel-without-gamma-correction-8bit.ppm",
		"clamped-chapel-without-gamma-correction-10bit.ppm",
		"clamped-chapel-with-gamma-correction-8bit.ppm",
		"clamped-chapel-with-gamma-correction-10bit.ppm",
		"reinhard-extended-chapel-with-gamma-correction-8bit.ppm",
		"reinhard-extended-chapel-with-gamma-correction-10bit.ppm",
	}, names)

	assert.Equal(t, []uint16{255, 255, 255, 0, 0, 0}, outs[4].Raster.Pix)
	assert.Equal(t, []uint16{1023, 1023, 1023, 0, 0, 0}, outs[5].Raster.Pix)
	assert.InDelta(t, 0.001, outs[4].Stats.LogAverageLuminance, 1e-12)
	assert.Equal(t, tonemap.Stats{}, outs[0].Stats)
}

func TestRenderVariantsDontShareFrames(t *testing.T) {
	src := twoPixelFrame()
	src.SetRGBA(0, 0, 4, 4, 4, 1)
	before := src.Clone()

	r := NewRenderer(finalized(t, nil), backend.Sequential{}, backend.KindScalar)
	outs, err := r.RenderFrame(src, "s")
	require.NoError(t, err)
	assert.Equal(t, before.Pix, src.Pix)
	assert.Equal(t, []uint16{255, 255, 255, 0, 0, 0}, outs[0].Raster.Pix, "clamped")
}

func TestRenderWritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := finalized(t, func(c *Config) {
		c.OutputDir = dir
		c.DumpHDR = true
		c.DebugPixels = []image.Point{{0, 0}}
	})
	r := NewRenderer(cfg, backend.Sequential{}, backend.KindScalar)

	outs, err := r.Render(source.FromFrame("tests/memorial.exr", twoPixelFrame()))
	require.NoError(t, err)
	require.Len(t, outs, 6)

	f, err := os.Open(filepath.Join(dir, "reinhard-extended-memorial-with-gamma-correction-10bit.ppm"))
	require.NoError(t, err)
	defer f.Close()
	got, err := pixdump.Read(f)
	require.NoError(t, err)
	assert.Equal(t, outs[5].Raster, got)

	_, err = os.Stat(filepath.Join(dir, "reinhard-extended-memorial.hdr"))
	assert.NoError(t, err)
	assert.Equal(t, [3]uint16{1023, 1023, 1023}, r.Trace.Records[0].Samples)
}

func TestRenderRejectPolicyKeepsEarlierVariants(t *testing.T) {
	dir := t.TempDir()
	cfg := finalized(t, func(c *Config) {
		c.OutputDir = dir
		c.Policy = "reject"
	})
	r := NewRenderer(cfg, backend.Sequential{}, backend.KindScalar)

	outs, err := r.Render(source.FromFrame("chapel.exr", twoPixelFrame()))
	assert.ErrorIs(t, err, tonemap.ErrInvalidLuminance)
	assert.Contains(t, err.Error(), "reinhard-extended")
	require.Len(t, outs, 4, "the clamp baselines succeeded")

	names := []string{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"clamped-chapel-without-gamma-correction-8bit.ppm",
		"clamped-chapel-without-gamma-correction-10bit.ppm",
		"clamped-chapel-with-gamma-correction-8bit.ppm",
		"clamped-chapel-with-gamma-correction-10bit.ppm",
	}, names, "nothing of the failing variant is written")
}

func TestRenderBackendsAgree(t *testing.T) {
	src := randomFrame(97, 41)
	cfg := finalized(t, nil)

	want, err := NewRenderer(cfg, backend.Sequential{}, backend.KindScalar).RenderFrame(src, "s")
	require.NoError(t, err)

	pool := backend.NewPool(4, 128)
	defer pool.Close()
	got, err := NewRenderer(cfg, pool, backend.KindParallel).RenderFrame(src, "s")
	require.NoError(t, err)

	require.Equal(t, len(want), len(got))
	for i := range want {
		d, err := Compare(want[i].Raster, got[i].Raster)
		require.NoError(t, err)
		assert.True(t, d.WithinOneStep(), "%s: %s", want[i].Path, d)
	}
}

func TestKernelRendererRunsAtFloat32(t *testing.T) {
	r := NewRenderer(finalized(t, nil), backend.Sequential{}, backend.KindKernel)
	assert.Equal(t, 32, r.Precision)
	_, ok := r.stages().(*tonemap.Pipeline[float32])
	assert.True(t, ok)
}

func TestReferenceOperators(t *testing.T) {
	src := randomFrame(16, 12)
	for _, op := range []string{OpLinear, OpDrago03, OpReinhard05} {
		out, err := ApplyReference(op, src)
		require.NoError(t, err, op)
		assert.Equal(t, src.W, out.W)
		for i, v := range out.Pix {
			assert.True(t, v >= 0 && v <= 1, "%s sample %d = %g", op, i, v)
		}
	}
	_, err := ApplyReference("durand", src)
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := tonemap.NewRaster(3, 2, 8)
	b := tonemap.NewRaster(3, 2, 8)
	d, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Differing)
	assert.True(t, d.WithinOneStep())

	b.Set(2, 1, 0, 3, 1)
	d, err = Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 3, 1}, d.MaxDiff)
	assert.Equal(t, 2, d.Differing)
	assert.Equal(t, 3, d.Max())
	assert.Equal(t, 3.0, d.Grid.Get(2, 1))
	assert.False(t, d.WithinOneStep())
	assert.Contains(t, d.String(), "2/18")

	_, err = Compare(a, tonemap.NewRaster(3, 2, 10))
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	f := tonemap.NewFrame(5, 1)
	for i, v := range []float32{1, 2, 4, 8, 0} {
		f.SetRGBA(i, 0, v, v, v, 1)
	}

	r := NewReport(f)
	assert.InDelta(t, 0.0, r.Min, 1e-12)
	assert.InDelta(t, 8.0, r.Max, 1e-9)
	assert.Equal(t, 1, r.NonPositive)
	assert.InDelta(t, 2.828427, r.LogAverage, 1e-5)
	assert.InDelta(t, 2.0, r.Median(), 1e-6)
	require.Len(t, r.Quantiles, len(ReportQuantiles))
	assert.InEpsilon(t, 2.0, r.Quantiles[3], 0.01)
	assert.Contains(t, r.String(), "p50")

	require.NoError(t, r.DumpGrid("luminance", filepath.Join(t.TempDir(), "lum.png")))
}
