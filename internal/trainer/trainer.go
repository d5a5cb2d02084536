// Package trainer runs forward and backward passes of an NNUE network on the
// device and updates its parameters.
package trainer

import (
	"fmt"
	"strings"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
	"github.com/ChizhovVadim/nnuetrain/internal/device"
	"github.com/ChizhovVadim/nnuetrain/internal/optimiser"
	"github.com/ChizhovVadim/nnuetrain/internal/tensor"
)

type Trainer struct {
	input      dataset.InputType
	optimiser  *optimiser.Optimiser
	ft         featureTransformer
	nodes      []node
	inputs     *tensor.SparseTensor
	results    *tensor.TensorBatch
	errSum     *device.Buffer[float32]
	testErrSum *device.Buffer[float32]
	scale      float32
	quantiser  []quantiseInfo
}

func (t *Trainer) Input() dataset.InputType { return t.input }
func (t *Trainer) NetSize() int             { return t.optimiser.Size() }
func (t *Trainer) BatchSize() int           { return t.ft.outputs.Cap() }
func (t *Trainer) EvalScale() float32       { return t.scale }

// String describes the topology, e.g. "(768 -> 256)x2 -> 1".
func (t *Trainer) String() string {
	var sb strings.Builder
	var size = t.input.Size()
	if b, ok := t.input.(interface{ Buckets() int }); ok && b.Buckets() > 1 {
		fmt.Fprintf(&sb, "(%vx%v", size/b.Buckets(), b.Buckets())
	} else {
		fmt.Fprintf(&sb, "(%v", size)
	}
	fmt.Fprintf(&sb, " -> %v)x2", t.ft.biases.NumElements())
	for _, n := range t.nodes {
		switch op := n.op.(type) {
		case *affine:
			fmt.Fprintf(&sb, " -> %v", n.outputs.ElementSize())
		case activation:
			fmt.Fprintf(&sb, " %v", op.op)
		}
	}
	return sb.String()
}

func (t *Trainer) ClearData() {
	t.inputs.Clear()
}

// LoadData appends a prepared batch after the samples already loaded.
func (t *Trainer) LoadData(batch *dataset.GpuBatch) {
	if batch.MaxActive != t.inputs.MaxActive() {
		panic(fmt.Sprintf("Batch prepared for %v active features, trainer expects %v!",
			batch.MaxActive, t.inputs.MaxActive()))
	}
	var used = t.inputs.Used()
	t.inputs.Append(batch.Inputs)
	device.CopyToDevice(t.results.Ptr().Add(used), batch.Results)
}

// Used is the number of samples loaded since ClearData.
func (t *Trainer) Used() int {
	return t.inputs.Used()
}

// TrainOnBatch does one optimisation step over the loaded samples.
func (t *Trainer) TrainOnBatch(decay, rate float32) {
	t.optimiser.ZeroGradient()

	t.forward()
	t.calcErrors(t.errSum)
	device.Synchronise()
	t.backprop()

	var adj = 2 / float32(t.inputs.Used())
	t.optimiser.Update(decay, adj, rate)
	device.Synchronise()
}

// PrepForEpoch resets the accumulated error.
func (t *Trainer) PrepForEpoch() {
	t.errSum.LoadFromCPU([]float32{0})
	device.Synchronise()
}

// Error is the summed squared error since PrepForEpoch.
func (t *Trainer) Error() float32 {
	device.Synchronise()
	var buf = []float32{0}
	t.errSum.WriteToCPU(buf)
	return buf[0]
}

func (t *Trainer) WriteWeightsToCPU(buf []float32) {
	t.optimiser.WriteWeightsToCPU(buf)
}

func (t *Trainer) LoadWeightsFromCPU(buf []float32) {
	t.optimiser.LoadWeightsFromCPU(buf)
}

// TestError is the mean squared error over boards without training.
func (t *Trainer) TestError(boards []dataset.ChessBoard, threads int, blend float32) float32 {
	if len(boards) == 0 {
		return 0
	}
	t.testErrSum.LoadFromCPU([]float32{0})
	for lo := 0; lo < len(boards); lo += t.BatchSize() {
		var hi = min(lo+t.BatchSize(), len(boards))
		t.ClearData()
		t.LoadData(dataset.PrepareBatch(t.input, boards[lo:hi], threads, blend, t.scale))
		t.forward()
		t.calcErrors(t.testErrSum)
	}
	device.Synchronise()
	var buf = []float32{0}
	t.testErrSum.WriteToCPU(buf)
	return buf[0] / float32(len(boards))
}

// Evaluate returns the network output of every board in centipawns.
func (t *Trainer) Evaluate(boards []dataset.ChessBoard, threads int) []float32 {
	var result = make([]float32, 0, len(boards))
	var outputs = t.nodes[len(t.nodes)-1].outputs
	for lo := 0; lo < len(boards); lo += t.BatchSize() {
		var hi = min(lo+t.BatchSize(), len(boards))
		t.ClearData()
		t.LoadData(dataset.PrepareBatch(t.input, boards[lo:hi], threads, 0, t.scale))
		t.forward()
		var buf = make([]float32, hi-lo)
		outputs.WriteToCPU(buf)
		for _, v := range buf {
			result = append(result, v*t.scale)
		}
	}
	return result
}

// Close releases every device buffer owned by the trainer.
func (t *Trainer) Close() {
	t.ft.outputs.Free()
	for _, n := range t.nodes {
		n.op.free()
		n.outputs.Free()
	}
	t.inputs.Free()
	t.results.Free()
	t.errSum.Free()
	t.testErrSum.Free()
	t.optimiser.Free()
}

func (t *Trainer) forward() {
	var batchSize = t.inputs.Used()
	tensor.SparseAffine(t.ft.weights, t.inputs, t.ft.biases, t.ft.outputs)

	var inputs = t.ft.outputs
	for _, n := range t.nodes {
		n.op.forward(batchSize, inputs, n.outputs)
		inputs = n.outputs
	}
}

func (t *Trainer) calcErrors(errSum *device.Buffer[float32]) {
	var output = t.nodes[len(t.nodes)-1].outputs
	output.SigmoidMSE(t.inputs.Used(), t.results, errSum)
}

func (t *Trainer) backprop() {
	var batchSize = t.inputs.Used()
	for i := len(t.nodes) - 1; i > 0; i-- {
		t.nodes[i].op.backward(batchSize, t.nodes[i].outputs, t.nodes[i-1].outputs)
	}
	t.nodes[0].op.backward(batchSize, t.nodes[0].outputs, t.ft.outputs)

	tensor.SparseAffineBackprop(t.ft.weightsGrad, t.inputs, t.ft.biasesGrad, t.ft.outputs)
}
