package backend

import (
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// checkCoverage dispatches n invocations and verifies each ran exactly
// once, with group numbers in range and groups contiguous.
func checkCoverage(t *testing.T, e tonemap.Executor, n int) {
	t.Helper()
	hits := make([]atomic.Int32, n)
	groups := e.Groups(n)
	err := e.Dispatch(n, func(g, lo, hi int) {
		assert.GreaterOrEqual(t, g, 0)
		assert.Less(t, g, groups)
		for i := lo; i < hi; i++ {
			hits[i].Add(1)
		}
	})
	require.NoError(t, err)
	for i := range hits {
		require.Equal(t, int32(1), hits[i].Load(), "invocation %d", i)
	}
}

func TestSequential(t *testing.T) {
	s := Sequential{}
	assert.Equal(t, 0, s.Groups(0))
	assert.Equal(t, 1, s.Groups(1000))
	checkCoverage(t, s, 1000)
	assert.NoError(t, s.Close())
}

func TestPoolDispatch(t *testing.T) {
	p := NewPool(4, 10)
	defer p.Close()

	assert.Equal(t, 4, p.Workers())
	assert.Equal(t, 0, p.Groups(0))
	assert.Equal(t, 1, p.Groups(10))
	assert.Equal(t, 11, p.Groups(101))
	for _, n := range []int{0, 1, 9, 10, 101, 5000} {
		checkCoverage(t, p, n)
	}
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(2, 0)
	assert.Equal(t, DefaultGroupSize, p.GroupSize())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.False(t, p.IsRunning())

	err := p.Dispatch(100, func(int, int, int) {})
	assert.True(t, errors.Is(err, ErrClosed))
	var berr *Error
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, KindParallel, berr.Backend)
}

func TestPoolCloseWaitsForDispatch(t *testing.T) {
	p := NewPool(2, 1)
	started := make(chan struct{})
	release := make(chan struct{})
	var ran atomic.Int32

	dispatched := make(chan error)
	go func() {
		dispatched <- p.Dispatch(50, func(g, lo, hi int) {
			if g == 0 {
				close(started)
				<-release
			}
			ran.Add(1)
		})
	}()
	<-started

	closed := make(chan error)
	go func() { closed <- p.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a dispatch was still queueing")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	for _, ch := range []chan error{dispatched, closed} {
		select {
		case err := <-ch:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("dispatch or close hung")
		}
	}
	assert.Equal(t, int32(50), ran.Load(), "every queued group ran")
	assert.True(t, errors.Is(p.Dispatch(1, func(int, int, int) {}), ErrClosed))
}

func TestOpen(t *testing.T) {
	for _, kind := range []Kind{KindScalar, KindParallel, KindKernel} {
		b, err := Open(kind, Options{Workers: 2})
		require.NoError(t, err)
		assert.Equal(t, kind, b.Kind())
		checkCoverage(t, b, 777)
		assert.NoError(t, b.Close())
	}

	_, err := Open(Kind("quantum"), Options{})
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = ParseKind("quantum")
	assert.Error(t, err)
}

func randomFrame(w, h int, seed int64) *tonemap.Frame {
	rng := rand.New(rand.NewSource(seed))
	f := tonemap.NewFrame(w, h)
	for i := 0; i < f.Len(); i++ {
		for c := 0; c < 3; c++ {
			f.Pix[4*i+c] = float32(rng.ExpFloat64() * 2)
		}
		f.Pix[4*i+3] = 1
	}
	return f
}

func render(t *testing.T, p tonemap.Stages, src *tonemap.Frame, enc tonemap.Encoder) *tonemap.Raster {
	t.Helper()
	f := src.Clone()
	_, err := p.ToneMap(f)
	require.NoError(t, err)
	ras, err := p.Encode(f, enc)
	require.NoError(t, err)
	return ras
}

func assertWithinOneStep(t *testing.T, want, got *tonemap.Raster) {
	t.Helper()
	require.Equal(t, len(want.Pix), len(got.Pix))
	for i := range want.Pix {
		d := int(want.Pix[i]) - int(got.Pix[i])
		if d < -1 || d > 1 {
			t.Fatalf("sample %d: %d vs %d", i, want.Pix[i], got.Pix[i])
		}
	}
}

func TestScalarAndParallelAgree(t *testing.T) {
	src := randomFrame(150, 90, 1)
	pool := NewPool(0, 64)
	defer pool.Close()

	for _, depth := range []int{8, 10} {
		enc := tonemap.Encoder{BitDepth: depth, Transfer: tonemap.TransferGamma}
		want := render(t, tonemap.NewPipeline[float64](Sequential{}), src, enc)
		assertWithinOneStep(t, want, render(t, tonemap.NewPipeline[float64](pool), src, enc))
		assertWithinOneStep(t, want, render(t, tonemap.NewPipeline[float32](pool), src, enc))
	}
}

func TestParallelDeterministicAcrossWorkerCounts(t *testing.T) {
	src := randomFrame(200, 50, 2)
	enc := tonemap.Encoder{BitDepth: 10, Transfer: tonemap.TransferSRGB}

	var first *tonemap.Raster
	for _, workers := range []int{1, 3, 8} {
		pool := NewPool(workers, 64)
		got := render(t, tonemap.NewPipeline[float32](pool), src, enc)
		require.NoError(t, pool.Close())
		if first == nil {
			first = got
			continue
		}
		assert.Equal(t, first.Pix, got.Pix, "%d workers", workers)
	}
}
