package backend

import (
	"fmt"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// DefaultLanes is the workgroup size of the kernel backend.
const DefaultLanes = 64

// MaxLanes is the largest workgroup a device accepts, the WebGPU default
// limit on invocations per workgroup.
const MaxLanes = 256

type DeviceOptions struct {
	Workers int // 0 means GOMAXPROCS
	Lanes   int // 0 means DefaultLanes
}

// Device is the kernel backend: invocations run in workgroups of Lanes,
// and the renderer evaluates it with a tonemap.Pipeline[float32], the
// precision of a GPU lane. The workgroups run on CPU workers that belong
// to the device and are released by Close.
type Device struct {
	lanes int
	pool  *Pool
}

// OpenDevice acquires a device. An unusable workgroup size is a *Error
// wrapping ErrUnavailable; nothing falls back to another backend.
func OpenDevice(opts DeviceOptions) (*Device, error) {
	lanes := opts.Lanes
	if lanes <= 0 {
		lanes = DefaultLanes
	}
	if lanes > MaxLanes {
		return nil, &Error{Backend: KindKernel, Op: "open", Err: fmt.Errorf("%w: %d lanes per workgroup, limit is %d", ErrUnavailable, lanes, MaxLanes)}
	}

	d := &Device{
		lanes: lanes,
		pool:  NewPool(opts.Workers, lanes),
	}
	tonemap.Logger().Info("device opened", "lanes", lanes, "workers", d.pool.Workers())
	return d, nil
}

// WithDevice opens a device, runs fn, and releases the device whatever
// fn returns.
func WithDevice(opts DeviceOptions, fn func(*Device) error) (err error) {
	d, err := OpenDevice(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

func (d *Device) Kind() Kind { return KindKernel }
func (d *Device) Lanes() int { return d.lanes }

func (d *Device) Groups(n int) int {
	return (max(n, 0) + d.lanes - 1) / d.lanes
}

// Dispatch runs fn once per workgroup of Lanes invocations. Workgroups
// are batched onto the device's workers; each batch runs its workgroups
// in order.
func (d *Device) Dispatch(n int, fn func(group, lo, hi int)) error {
	groups := d.Groups(n)
	batches := min(groups, d.pool.Workers()*4)
	if batches == 0 {
		if !d.pool.IsRunning() {
			return &Error{Backend: KindKernel, Op: "dispatch", Err: ErrClosed}
		}
		return nil
	}
	per := (groups + batches - 1) / batches

	items := make([]func(), 0, batches)
	for first := 0; first < groups; first += per {
		last := min(first+per, groups)
		items = append(items, func() {
			for g := first; g < last; g++ {
				lo := g * d.lanes
				fn(g, lo, min(lo+d.lanes, n))
			}
		})
	}
	return d.pool.run(KindKernel, items)
}

// Close releases the device's workers. Safe to call more than once.
func (d *Device) Close() error {
	if d.pool.IsRunning() {
		tonemap.Logger().Info("device closed")
	}
	return d.pool.Close()
}
