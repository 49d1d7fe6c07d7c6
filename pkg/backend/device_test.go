package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

func TestDeviceDispatch(t *testing.T) {
	d, err := OpenDevice(DeviceOptions{Workers: 4})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, DefaultLanes, d.Lanes())
	assert.Equal(t, 2, d.Groups(65))
	for _, n := range []int{0, 1, 63, 64, 65, 10000} {
		checkCoverage(t, d, n)
	}
}

func TestOpenDeviceRejectsOversizedWorkgroup(t *testing.T) {
	_, err := OpenDevice(DeviceOptions{Lanes: MaxLanes + 1})
	assert.True(t, errors.Is(err, ErrUnavailable))
	var berr *Error
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, KindKernel, berr.Backend)

	d, err := OpenDevice(DeviceOptions{Lanes: MaxLanes, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, MaxLanes, d.Lanes())
	assert.NoError(t, d.Close())
}

func TestDeviceLifecycle(t *testing.T) {
	var kept *Device
	err := WithDevice(DeviceOptions{Workers: 2}, func(d *Device) error {
		kept = d
		checkCoverage(t, d, 300)
		return nil
	})
	require.NoError(t, err)

	err = kept.Dispatch(10, func(int, int, int) {})
	assert.True(t, errors.Is(err, ErrClosed))
	err = kept.Dispatch(0, func(int, int, int) {})
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, kept.Close())
}

func TestWithDeviceReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := WithDevice(DeviceOptions{}, func(*Device) error { return boom })
	assert.True(t, errors.Is(err, boom))
}

func TestKernelAgreesWithScalar(t *testing.T) {
	d, err := OpenDevice(DeviceOptions{Workers: 4})
	require.NoError(t, err)
	defer d.Close()

	src := randomFrame(129, 65, 3)
	for _, depth := range []int{8, 10} {
		enc := tonemap.Encoder{BitDepth: depth, Transfer: tonemap.TransferGamma}
		want := render(t, tonemap.NewPipeline[float64](Sequential{}), src, enc)
		got := render(t, tonemap.NewPipeline[float32](d), src, enc)
		assertWithinOneStep(t, want, got)
	}
}
