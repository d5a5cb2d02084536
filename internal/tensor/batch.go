package tensor

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

// Linear transforms. A matrix a of shape (m, n) has m columns and n rows and
// maps m-vectors x to n-vectors y.

func validateDims(batchSize int, aShape Shape, x, y *TensorBatch) (m, n int) {
	assertShape(x.Shape(), NewShape(1, aShape.Cols()))
	assertShape(y.Shape(), NewShape(1, aShape.Rows()))
	assertCap(x, y)
	checkBatch(batchSize, x)
	return aShape.Cols(), aShape.Rows()
}

// SplatLtNN computes y[i] = a x[i], broadcasting one a over the batch.
func SplatLtNN(batchSize int, a *Tensor, x, y *TensorBatch) {
	var m, n = validateDims(batchSize, a.Shape(), x, y)
	device.SplatGemv(batchSize, m, n, a.Ptr(), x.Ptr(), y.Ptr())
}

// SplatLtTN computes x[i] = aᵗ y[i], broadcasting one a over the batch.
func SplatLtTN(batchSize int, a *Tensor, y, x *TensorBatch) {
	var m, n = validateDims(batchSize, a.Shape(), x, y)
	device.SplatGemvT(batchSize, m, n, a.Ptr(), y.Ptr(), x.Ptr())
}

// LtNN computes y[i] = a[i] x[i] with a distinct matrix per element.
func LtNN(batchSize int, a, x, y *TensorBatch) {
	var m, n = validateDims(batchSize, a.Shape(), x, y)
	assertCap(x, a)
	device.StridedGemv(batchSize, m, n, a.ElementSize(), a.Ptr(), x.Ptr(), y.Ptr())
}

// LtTN computes x[i] = a[i]ᵗ y[i] with a distinct matrix per element.
func LtTN(batchSize int, a, y, x *TensorBatch) {
	var m, n = validateDims(batchSize, a.Shape(), x, y)
	assertCap(x, a)
	device.StridedGemvT(batchSize, m, n, a.ElementSize(), a.Ptr(), y.Ptr(), x.Ptr())
}

// LtNT computes the outer products a[i] = y[i] x[i]ᵗ.
func LtNT(batchSize int, y, x, a *TensorBatch) {
	var m, n = validateDims(batchSize, a.Shape(), x, y)
	assertCap(x, a)
	device.StridedGer(batchSize, m, n, a.ElementSize(), y.Ptr(), x.Ptr(), a.Ptr())
}

// ReduceAdd accumulates the sum of the first batchSize elements of inp into out.
func ReduceAdd(batchSize int, inp *TensorBatch, out *Tensor) {
	assertShape(inp.Shape(), out.Shape())
	checkBatch(batchSize, inp)
	device.ReduceAdd(batchSize, inp.ElementSize(), device.Ptr[float32]{}, inp.Ptr(), out.Ptr())
}

// ReduceAddWeighted is ReduceAdd with element i scaled by weights[i].
func ReduceAddWeighted(batchSize int, weights, inp *TensorBatch, out *Tensor) {
	assertShape(weights.Shape(), NewShape(1, 1))
	assertShape(inp.Shape(), out.Shape())
	checkBatch(batchSize, inp)
	checkBatch(batchSize, weights)
	device.ReduceAdd(batchSize, inp.ElementSize(), weights.Ptr(), inp.Ptr(), out.Ptr())
}

// SplatAdd adds inp to each of the first batchSize elements of out.
func SplatAdd(batchSize int, inp *Tensor, out *TensorBatch) {
	assertShape(inp.Shape(), out.Shape())
	checkBatch(batchSize, out)
	device.SplatAdd(batchSize, out.ElementSize(), inp.Ptr(), out.Ptr())
}

// Affine computes outputs[i] = weights inputs[i] + biases.
func Affine(batchSize int, weights *Tensor, inputs *TensorBatch, biases *Tensor, outputs *TensorBatch) {
	SplatLtNN(batchSize, weights, inputs, outputs)
	SplatAdd(batchSize, biases, outputs)
}

// BackpropAffine accumulates the weight and bias gradients of Affine from
// errors, then overwrites inputs with the errors propagated through weights.
// The order matters: the gradient needs inputs before they are overwritten.
func BackpropAffine(
	batchSize int,
	weights *Tensor,
	errors *TensorBatch,
	inputs *TensorBatch,
	weightsGrad *Tensor,
	biasesGrad *Tensor,
	weightsIntermediate *TensorBatch,
) {
	LtNT(batchSize, errors, inputs, weightsIntermediate)
	ReduceAdd(batchSize, weightsIntermediate, weightsGrad)
	ReduceAdd(batchSize, errors, biasesGrad)
	SplatLtTN(batchSize, weights, errors, inputs)
}

// SigmoidMSE turns the first batchSize scalar outputs of b into the gradient
// of the sigmoid squared error against results and adds the summed squared
// error to errSum.
func (b *TensorBatch) SigmoidMSE(batchSize int, results *TensorBatch, errSum *device.Buffer[float32]) {
	if errSum.Size() != 1 {
		panic(fmt.Sprintf("error accumulator must hold one value, has %v", errSum.Size()))
	}
	assertShape(b.Shape(), NewShape(1, 1))
	assertShape(results.Shape(), b.Shape())
	checkBatch(batchSize, b)
	checkBatch(batchSize, results)
	device.SigmoidMSE(batchSize, b.Ptr(), results.Ptr(), errSum.Ptr())
}
