// Package optimiser holds every learnable parameter of a network in one
// contiguous device allocation and updates all of them in a single AdamW pass.
package optimiser

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

type Params struct {
	Beta1     float32
	Beta2     float32
	Epsilon   float32
	MinWeight float32
	MaxWeight float32
}

func DefaultParams() Params {
	return Params{
		Beta1:     0.9,
		Beta2:     0.999,
		Epsilon:   1e-8,
		MinWeight: -1.98,
		MaxWeight: 1.98,
	}
}

type Optimiser struct {
	size      int
	params    Params
	network   *device.Buffer[float32]
	momentum  *device.Buffer[float32]
	velocity  *device.Buffer[float32]
	gradients *device.Buffer[float32]
}

func New(size int, params Params) *Optimiser {
	if size <= 0 {
		panic(fmt.Sprintf("Invalid optimiser size %v", size))
	}
	return &Optimiser{
		size:      size,
		params:    params,
		network:   device.Alloc[float32](size),
		momentum:  device.Alloc[float32](size),
		velocity:  device.Alloc[float32](size),
		gradients: device.Alloc[float32](size),
	}
}

func (o *Optimiser) Size() int      { return o.size }
func (o *Optimiser) Params() Params { return o.params }

// Update applies one step with gradients scaled by adj. Weights decay by
// 1 - decay*rate before the Adam step and are clamped afterwards.
func (o *Optimiser) Update(decay, adj, rate float32) {
	var decayGamma = 1 - decay*rate
	device.UpdateWeights(o.size, device.AdamW(o.params), decayGamma, adj, rate,
		o.network.Ptr(), o.momentum.Ptr(), o.velocity.Ptr(), o.gradients.Ptr())
}

func (o *Optimiser) ZeroGradient() {
	device.Zero(o.gradients.Ptr(), o.size)
}

// WeightsOffset is a view of the parameters starting at index.
func (o *Optimiser) WeightsOffset(index int) device.Ptr[float32] {
	return o.network.Offset(index)
}

// GradientsOffset is a view of the gradients starting at index.
func (o *Optimiser) GradientsOffset(index int) device.Ptr[float32] {
	return o.gradients.Offset(index)
}

func (o *Optimiser) LoadWeightsFromCPU(network []float32) {
	o.checkHost(len(network))
	o.network.LoadFromCPU(network)
}

// LoadFromCPU restores the parameters and both moment estimates.
func (o *Optimiser) LoadFromCPU(network, momentum, velocity []float32) {
	o.checkHost(len(network))
	o.checkHost(len(momentum))
	o.checkHost(len(velocity))
	o.network.LoadFromCPU(network)
	o.momentum.LoadFromCPU(momentum)
	o.velocity.LoadFromCPU(velocity)
}

func (o *Optimiser) WriteWeightsToCPU(network []float32) {
	o.checkHost(len(network))
	o.network.WriteToCPU(network)
}

func (o *Optimiser) WriteToCPU(network, momentum, velocity []float32) {
	o.checkHost(len(network))
	o.checkHost(len(momentum))
	o.checkHost(len(velocity))
	o.network.WriteToCPU(network)
	o.momentum.WriteToCPU(momentum)
	o.velocity.WriteToCPU(velocity)
}

func (o *Optimiser) Free() {
	o.network.Free()
	o.momentum.Free()
	o.velocity.Free()
	o.gradients.Free()
}

func (o *Optimiser) checkHost(n int) {
	if n != o.size {
		panic(fmt.Sprintf("Host buffer of %v, optimiser holds %v!", n, o.size))
	}
}
