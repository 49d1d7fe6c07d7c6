package backend

// Sequential evaluates the whole domain as one group, in the caller's
// goroutine. It is the scalar reference path.
type Sequential struct{}

func (Sequential) Kind() Kind   { return KindScalar }
func (Sequential) Close() error { return nil }

func (Sequential) Groups(n int) int {
	if n <= 0 {
		return 0
	}
	return 1
}

func (Sequential) Dispatch(n int, fn func(group, lo, hi int)) error {
	if n > 0 {
		fn(0, 0, n)
	}
	return nil
}
