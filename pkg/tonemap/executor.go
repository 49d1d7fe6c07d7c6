package tonemap

// An Executor evaluates a function over a one-dimensional domain of n
// invocations, split into contiguous workgroups. Dispatch calls fn once
// per group with the group number, in [0, Groups(n)), and the half-open
// index range [lo, hi) it covers, and returns only after every group has
// run. Groups never overlap, so fn may write to its own range without
// locking.
//
// Implementations live in the backend package.
type Executor interface {
	Groups(n int) int
	Dispatch(n int, fn func(group, lo, hi int)) error
}

// serial is the trivial executor, used when a Pipeline has none.
type serial struct{}

func (serial) Groups(n int) int {
	if n <= 0 {
		return 0
	}
	return 1
}

func (serial) Dispatch(n int, fn func(group, lo, hi int)) error {
	if n > 0 {
		fn(0, 0, n)
	}
	return nil
}
