package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

func TestSparseAffine(t *testing.T) {
	const M, N = 3, 2
	var weights = newLoaded(NewShape(N, M), []float32{1, 0, 1, 1, 0, 1})
	var biases = newLoaded(NewShape(1, N), []float32{0.5, -0.5})
	defer weights.Free()
	defer biases.Free()

	var inputs = NewSparseTensor(3, M, 1)
	defer inputs.Free()
	inputs.Append([]device.Feat{{Our: 0, Opp: 0}, {Our: 1, Opp: 1}, {Our: 2, Opp: 2}})

	var outputs = NewTensorBatch(NewShape(1, 2*N), 3)
	defer outputs.Free()

	SparseAffine(weights, inputs, biases, outputs)

	var buf = make([]float32, 12)
	outputs.WriteToCPU(buf)
	assert.Equal(t, []float32{
		1.5, -0.5, 1.5, -0.5,
		1.5, 0.5, 1.5, 0.5,
		0.5, 0.5, 0.5, 0.5,
	}, buf)

	var wg = NewTensor(NewShape(N, M))
	var bg = NewTensor(NewShape(1, N))
	wg.Calloc()
	bg.Calloc()
	defer wg.Free()
	defer bg.Free()

	SparseAffineBackprop(wg, inputs, bg, outputs)

	var wbuf = make([]float32, 6)
	wg.WriteToCPU(wbuf)
	assert.Equal(t, []float32{3, -1, 3, 1, 1, 1}, wbuf)

	var bbuf = make([]float32, 2)
	bg.WriteToCPU(bbuf)
	assert.Equal(t, []float32{7, 1}, bbuf)
}

func TestSparseAffinePerspectives(t *testing.T) {
	const M, N, maxActive = 4, 2, 3
	var w = []float32{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
	}
	var weights = newLoaded(NewShape(N, M), w)
	var biases = newLoaded(NewShape(1, N), []float32{0, 1})
	defer weights.Free()
	defer biases.Free()

	var feats = []device.Feat{
		{Our: 0, Opp: 3}, {Our: 1, Opp: 2}, {Our: device.FeatEnd, Opp: device.FeatEnd},
		{Our: 2, Opp: 0}, {Our: 3, Opp: 1}, {Our: 1, Opp: 3},
	}
	var inputs = NewSparseTensor(4, M, maxActive)
	defer inputs.Free()
	inputs.Append(feats[:maxActive])
	inputs.Append(feats[maxActive:])
	assert.Equal(t, 2, inputs.Used())

	var outputs = NewTensorBatch(NewShape(1, 2*N), 4)
	defer outputs.Free()
	SparseAffine(weights, inputs, biases, outputs)

	var buf = make([]float32, 2*2*N)
	outputs.WriteToCPU(buf)
	assert.Equal(t, []float32{
		1 + 3, 1 + 2 + 4,
		7 + 5, 1 + 8 + 6,
		5 + 7 + 3, 1 + 6 + 8 + 4,
		1 + 3 + 7, 1 + 2 + 4 + 8,
	}, buf)

	var wg = NewTensor(NewShape(N, M))
	var bg = NewTensor(NewShape(1, N))
	wg.Calloc()
	bg.Calloc()
	defer wg.Free()
	defer bg.Free()

	outputs.LoadFromCPU([]float32{
		1, 0, 0, 1,
		0, 2, 3, 0,
	})
	SparseAffineBackprop(wg, inputs, bg, outputs)

	var wbuf = make([]float32, M*N)
	wg.WriteToCPU(wbuf)
	assert.Equal(t, []float32{
		1 + 3, 0,
		1 + 3, 2,
		0, 1 + 2,
		3, 1 + 2,
	}, wbuf)

	var bbuf = make([]float32, N)
	bg.WriteToCPU(bbuf)
	assert.Equal(t, []float32{4, 3}, bbuf)
}

func TestSparseTensorContract(t *testing.T) {
	assert.Panics(t, func() { NewSparseTensor(1, device.FeatEnd, 1) })

	var inputs = NewSparseTensor(2, 8, 2)
	defer inputs.Free()

	assert.Panics(t, func() { inputs.Append(make([]device.Feat, 3)) }, "partial sample")
	inputs.Append(make([]device.Feat, 4))
	assert.Panics(t, func() { inputs.Append(make([]device.Feat, 2)) }, "overflow")

	inputs.Clear()
	assert.Equal(t, 0, inputs.Used())

	var weights = NewTensor(NewShape(2, 8))
	var biases = NewTensor(NewShape(1, 2))
	weights.Calloc()
	biases.Calloc()
	defer weights.Free()
	defer biases.Free()
	var outputs = NewTensorBatch(NewShape(1, 4), 2)
	defer outputs.Free()

	assert.Panics(t, func() { SparseAffine(weights, inputs, biases, outputs) }, "empty")

	inputs.Append(make([]device.Feat, 2))
	var narrow = NewTensorBatch(NewShape(1, 2), 2)
	defer narrow.Free()
	assert.Panics(t, func() { SparseAffine(weights, inputs, biases, narrow) }, "output width")
}
