package tensor

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

// SparseTensor is a batch of sparse (1, inputDim) inputs stored as lists of
// at most maxActive features per sample, each list ended by device.FeatEnd
// when shorter than maxActive.
type SparseTensor struct {
	cap       int
	used      int
	inputDim  int
	maxActive int
	buf       *device.Buffer[device.Feat]
}

func NewSparseTensor(cap, inputDim, maxActive int) *SparseTensor {
	if inputDim >= device.FeatEnd {
		panic(fmt.Sprintf("Unsupported dimension %v!", inputDim))
	}
	if cap <= 0 || maxActive <= 0 {
		panic(fmt.Sprintf("Invalid sparse tensor cap %v max active %v", cap, maxActive))
	}
	return &SparseTensor{
		cap:       cap,
		inputDim:  inputDim,
		maxActive: maxActive,
		buf:       device.Alloc[device.Feat](cap * maxActive),
	}
}

func (s *SparseTensor) Clear()         { s.used = 0 }
func (s *SparseTensor) Used() int      { return s.used }
func (s *SparseTensor) Cap() int       { return s.cap }
func (s *SparseTensor) InputDim() int  { return s.inputDim }
func (s *SparseTensor) MaxActive() int { return s.maxActive }

func (s *SparseTensor) Free() {
	s.buf.Free()
}

// Append uploads len(inputs)/maxActive samples after the ones already held.
func (s *SparseTensor) Append(inputs []device.Feat) {
	if len(inputs)%s.maxActive != 0 {
		panic(fmt.Sprintf("input length %v is not a multiple of %v", len(inputs), s.maxActive))
	}
	var count = len(inputs) / s.maxActive
	if s.used+count > s.cap {
		panic(fmt.Sprintf("Overflow! %v + %v > %v", s.used, count, s.cap))
	}
	device.CopyToDevice(s.buf.Ptr().Add(s.used*s.maxActive), inputs)
	s.used += count
}

// SparseAffine computes outputs[i] = (weights our[i] + biases, weights opp[i] + biases).
// Weights are stored one output-sized row per input feature.
func SparseAffine(weights *Tensor, inputs *SparseTensor, biases *Tensor, outputs *TensorBatch) {
	var outputDim = inputs.validate(weights, biases, outputs)
	device.SparseAffineForward(inputs.used, inputs.maxActive, outputDim, inputs.inputDim,
		weights.Ptr(), biases.Ptr(), inputs.buf.Ptr(), outputs.Ptr())
}

// SparseAffineBackprop accumulates the gradients of SparseAffine from errors.
// Rows of inactive features are left untouched.
func SparseAffineBackprop(weightsGrad *Tensor, inputs *SparseTensor, biasesGrad *Tensor, errors *TensorBatch) {
	var outputDim = inputs.validate(weightsGrad, biasesGrad, errors)
	device.SparseAffineBackward(inputs.used, inputs.maxActive, outputDim, inputs.inputDim,
		weightsGrad.Ptr(), biasesGrad.Ptr(), inputs.buf.Ptr(), errors.Ptr())
}

func (s *SparseTensor) validate(weights, biases *Tensor, outputs *TensorBatch) int {
	if s.used == 0 {
		panic("Sparse tensor holds no inputs!")
	}
	checkBatch(s.used, outputs)
	var outputDim = outputs.ElementSize() / 2
	assertShape(weights.Shape(), NewShape(outputDim, s.inputDim))
	assertShape(biases.Shape(), NewShape(1, outputDim))
	return outputDim
}
