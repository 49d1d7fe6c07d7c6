// Package backend holds the executors a tonemap.Pipeline is evaluated
// through: a plain loop, a goroutine worker pool, and the kernel device.
package backend

import (
	"fmt"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

type Kind string

const (
	KindScalar   Kind = "scalar"   // one group, caller's goroutine
	KindParallel Kind = "parallel" // worker pool, CPU sized groups
	KindKernel   Kind = "kernel"   // float32 lanes in 64 invocation workgroups
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindScalar, KindParallel, KindKernel:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown backend '%s' (want scalar, parallel or kernel)", s)
}

// Backend is an Executor with an explicit release.
type Backend interface {
	tonemap.Executor
	Kind() Kind
	Close() error
}

var (
	_ Backend = Sequential{}
	_ Backend = (*Pool)(nil)
	_ Backend = (*Device)(nil)
)

type Options struct {
	Workers   int // 0 means GOMAXPROCS
	GroupSize int // invocations per group for the parallel backend; 0 means DefaultGroupSize
	Lanes     int // workgroup size for the kernel backend; 0 means DefaultLanes
}

// Open acquires a backend of the given kind. The caller must Close it.
func Open(kind Kind, opts Options) (Backend, error) {
	switch kind {
	case KindScalar:
		return Sequential{}, nil
	case KindParallel:
		return NewPool(opts.Workers, opts.GroupSize), nil
	case KindKernel:
		return OpenDevice(DeviceOptions{Workers: opts.Workers, Lanes: opts.Lanes})
	}
	return nil, &Error{Backend: kind, Op: "open", Err: fmt.Errorf("%w: unknown backend", ErrUnavailable)}
}
