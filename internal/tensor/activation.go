package tensor

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

type Activation int

const (
	ReLU Activation = iota
	CReLU
	SCReLU
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "ReLU"
	case CReLU:
		return "CReLU"
	case SCReLU:
		return "SCReLU"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

func ParseActivation(s string) (Activation, error) {
	for _, a := range []Activation{ReLU, CReLU, SCReLU} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", s)
}

func kernels(op Activation) (forward, backward device.Map) {
	switch op {
	case ReLU:
		return device.ActivateReLU, device.BackpropReLU
	case CReLU:
		return device.ActivateCReLU, device.BackpropCReLU
	case SCReLU:
		return device.ActivateSCReLU, device.BackpropSCReLU
	}
	panic(fmt.Sprintf("unsupported activation %v", op))
}

func mapBatch(f device.Map, batchSize int, inp, out *TensorBatch) {
	assertShape(inp.Shape(), out.Shape())
	if inp.Cap() != out.Cap() {
		panic("Mismatched cap sizes!")
	}
	checkBatch(batchSize, inp)
	f(batchSize*inp.ElementSize(), inp.Ptr(), out.Ptr())
}

// Activate computes out[i] = op(inp[i]).
func Activate(batchSize int, op Activation, inp, out *TensorBatch) {
	var forward, _ = kernels(op)
	mapBatch(forward, batchSize, inp, out)
}

// BackpropActivation turns inputs, which still hold the values op was
// applied to, into their errors: inputs[i] = errors[i] * op'(inputs[i]).
func BackpropActivation(batchSize int, op Activation, errors, inputs *TensorBatch) {
	var _, backward = kernels(op)
	mapBatch(backward, batchSize, errors, inputs)
}
