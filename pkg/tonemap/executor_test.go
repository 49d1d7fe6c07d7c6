package tonemap

import (
	"errors"
	"sync"
)

// chunked runs fixed-size groups concurrently, one goroutine each.
type chunked struct{ size int }

func (c chunked) Groups(n int) int { return (n + c.size - 1) / c.size }

func (c chunked) Dispatch(n int, fn func(group, lo, hi int)) error {
	var wg sync.WaitGroup
	for g := 0; g < c.Groups(n); g++ {
		lo := g * c.size
		hi := min(lo+c.size, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(g, lo, hi)
		}()
	}
	wg.Wait()
	return nil
}

var errBroken = errors.New("broken executor")

type broken struct{}

func (broken) Groups(n int) int                          { return 1 }
func (broken) Dispatch(int, func(group, lo, hi int)) error { return errBroken }
