package trainer

import (
	"github.com/ChizhovVadim/nnuetrain/internal/tensor"
)

// operation is one step of the dense part of the network. Node outputs are
// reused to hold errors on the way back.
type operation interface {
	forward(batchSize int, inputs, outputs *tensor.TensorBatch)
	// backward turns inputs into errors given the errors of outputs.
	backward(batchSize int, errors, inputs *tensor.TensorBatch)
	free()
}

type node struct {
	outputs *tensor.TensorBatch
	op      operation
}

type featureTransformer struct {
	weights     *tensor.Tensor
	biases      *tensor.Tensor
	weightsGrad *tensor.Tensor
	biasesGrad  *tensor.Tensor
	outputs     *tensor.TensorBatch
}

type activation struct {
	op tensor.Activation
}

func (a activation) forward(batchSize int, inputs, outputs *tensor.TensorBatch) {
	tensor.Activate(batchSize, a.op, inputs, outputs)
}

func (a activation) backward(batchSize int, errors, inputs *tensor.TensorBatch) {
	tensor.BackpropActivation(batchSize, a.op, errors, inputs)
}

func (a activation) free() {}

// affine parameters are views into the optimiser; only the scratch space
// for per-sample weight gradients is owned.
type affine struct {
	weights      *tensor.Tensor
	biases       *tensor.Tensor
	weightsGrad  *tensor.Tensor
	biasesGrad   *tensor.Tensor
	intermediate *tensor.TensorBatch
}

func (l *affine) forward(batchSize int, inputs, outputs *tensor.TensorBatch) {
	tensor.Affine(batchSize, l.weights, inputs, l.biases, outputs)
}

func (l *affine) backward(batchSize int, errors, inputs *tensor.TensorBatch) {
	tensor.BackpropAffine(batchSize, l.weights, errors, inputs, l.weightsGrad, l.biasesGrad, l.intermediate)
}

func (l *affine) free() {
	l.intermediate.Free()
}
