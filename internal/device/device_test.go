package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocIsZeroedAndTracked(t *testing.T) {
	var before = LiveAllocations()
	var b = Alloc[float32](5)
	require.Equal(t, before+1, LiveAllocations())

	var buf = []float32{1, 1, 1, 1, 1}
	b.WriteToCPU(buf)
	assert.Equal(t, []float32{0, 0, 0, 0, 0}, buf)

	b.Free()
	assert.Equal(t, before, LiveAllocations())
}

func TestIdsIncrease(t *testing.T) {
	var a = Alloc[float32](1)
	var b = Alloc[Feat](1)
	defer a.Free()
	defer b.Free()
	assert.Greater(t, b.ID(), a.ID())
}

func TestDoubleFreeIsFatal(t *testing.T) {
	var b = Alloc[float32](1)
	b.Free()
	assert.Panics(t, func() { b.Free() })
}

func TestUseAfterFreeIsFatal(t *testing.T) {
	var b = Alloc[float32](4)
	var p = b.Ptr()
	b.Free()
	assert.Panics(t, func() { Zero(p, 4) })
}

func TestCopyRoundTrip(t *testing.T) {
	var b = Alloc[float32](6)
	defer b.Free()

	CopyToDevice(b.Offset(2), []float32{1, 2, 3})
	var out = make([]float32, 6)
	CopyFromDevice(out, b.Ptr())
	assert.Equal(t, []float32{0, 0, 1, 2, 3, 0}, out)

	Zero(b.Offset(3), 2)
	CopyFromDevice(out, b.Ptr())
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 0}, out)
}

func TestBoundsChecks(t *testing.T) {
	var b = Alloc[float32](3)
	defer b.Free()

	assert.Panics(t, func() { b.Offset(3) })
	assert.Panics(t, func() { CopyToDevice(b.Offset(1), []float32{1, 2, 3}) })
	assert.Panics(t, func() { b.LoadFromCPU(make([]float32, 4)) })
	assert.Panics(t, func() { Zero(Ptr[float32]{}, 1) })
}

func TestKernelFaultSurfacesAtBarrier(t *testing.T) {
	var w = Alloc[float32](2)
	var bias = Alloc[float32](1)
	var inputs = Alloc[Feat](1)
	var out = Alloc[float32](2)
	defer w.Free()
	defer bias.Free()
	defer inputs.Free()
	defer out.Free()
	defer lastError.Store(nil)

	inputs.LoadFromCPU([]Feat{{Our: 7, Opp: 7}})
	assert.Panics(t, func() {
		SparseAffineForward(1, 1, 1, 2, w.Ptr(), bias.Ptr(), inputs.Ptr(), out.Ptr())
	})
	assert.Panics(t, Synchronise)
}

func TestReduceAddWeighted(t *testing.T) {
	var in = Alloc[float32](6)
	var w = Alloc[float32](2)
	var out = Alloc[float32](3)
	defer in.Free()
	defer w.Free()
	defer out.Free()

	in.LoadFromCPU([]float32{1, 2, 3, 4, 5, 6})
	w.LoadFromCPU([]float32{2, -1})
	out.LoadFromCPU([]float32{1, 1, 1})

	ReduceAdd(2, 3, w.Ptr(), in.Ptr(), out.Ptr())

	var buf = make([]float32, 3)
	out.WriteToCPU(buf)
	assert.Equal(t, []float32{-1, 0, 1}, buf)
}

func TestUpdateWeightsClamps(t *testing.T) {
	var net = Alloc[float32](2)
	var m = Alloc[float32](2)
	var v = Alloc[float32](2)
	var g = Alloc[float32](2)
	defer net.Free()
	defer m.Free()
	defer v.Free()
	defer g.Free()

	net.LoadFromCPU([]float32{0.5, -0.5})
	g.LoadFromCPU([]float32{-1, 1})

	var p = AdamW{Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8, MinWeight: -0.6, MaxWeight: 0.6}
	UpdateWeights(2, p, 1, 1, 10, net.Ptr(), m.Ptr(), v.Ptr(), g.Ptr())

	var buf = make([]float32, 2)
	net.WriteToCPU(buf)
	assert.Equal(t, []float32{0.6, -0.6}, buf)
}
