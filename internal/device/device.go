// Package device is the accelerator layer of the trainer: explicit device
// memory, synchronisation barriers and the kernels that run on it.
//
// The backend shipped here keeps device memory in its own host allocations,
// runs kernels data-parallel on goroutines and delegates dense batched
// linear algebra to gonum's BLAS. Memory is only reachable through Buffer and
// Ptr, so callers observe the same ownership and copy discipline a discrete
// accelerator imposes.
package device

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Feat is one active input feature seen from both perspectives.
type Feat struct {
	Our uint16
	Opp uint16
}

// FeatEnd terminates a sample's feature list when it is shorter than the
// maximum number of active inputs.
const FeatEnd = 0xFFFF

var lastError atomic.Pointer[error]

// Synchronise is the device barrier. Kernel faults recorded since the
// previous barrier are fatal here.
func Synchronise() {
	if err := lastError.Load(); err != nil {
		fault("synchronise", *err)
	}
}

// recordError keeps the first fault raised inside a kernel.
func recordError(err error) {
	lastError.CompareAndSwap(nil, &err)
}

func fault(caller string, err error) {
	panic(fmt.Sprintf("%s: %v", caller, err))
}

// minChunk keeps tiny launches on a single goroutine.
const minChunk = 64

// launch runs kernel over [0, n) split into contiguous chunks and returns
// once every chunk has finished.
func launch(n int, kernel func(lo, hi int)) {
	if n <= 0 {
		return
	}
	var chunks = min(runtime.GOMAXPROCS(0), (n+minChunk-1)/minChunk)
	if chunks <= 1 {
		kernel(0, n)
		return
	}
	var g errgroup.Group
	for c := 0; c < chunks; c++ {
		var lo = c * n / chunks
		var hi = (c + 1) * n / chunks
		g.Go(func() error {
			kernel(lo, hi)
			return nil
		})
	}
	g.Wait()
}
