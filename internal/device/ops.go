package device

import (
	"math"
	"sync"
)

// Map is an element-wise kernel over n elements.
type Map func(n int, in, out Ptr[float32])

func mapKernel(n int, in, out Ptr[float32], f func(x float32) float32) {
	var src = in.slice(n)
	var dst = out.slice(n)
	launch(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = f(src[i])
		}
	})
	Synchronise()
}

// backpropKernel computes pre[i] = errors[i] * f'(pre[i]), where pre holds
// the values the activation was applied to.
func backpropKernel(n int, errors, pre Ptr[float32], prime func(x float32) float32) {
	var src = errors.slice(n)
	var dst = pre.slice(n)
	launch(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = src[i] * prime(dst[i])
		}
	})
	Synchronise()
}

func ActivateReLU(n int, in, out Ptr[float32]) {
	mapKernel(n, in, out, func(x float32) float32 {
		return max(x, 0)
	})
}

func ActivateCReLU(n int, in, out Ptr[float32]) {
	mapKernel(n, in, out, func(x float32) float32 {
		return min(max(x, 0), 1)
	})
}

func ActivateSCReLU(n int, in, out Ptr[float32]) {
	mapKernel(n, in, out, func(x float32) float32 {
		var c = min(max(x, 0), 1)
		return c * c
	})
}

func BackpropReLU(n int, errors, pre Ptr[float32]) {
	backpropKernel(n, errors, pre, func(x float32) float32 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

func BackpropCReLU(n int, errors, pre Ptr[float32]) {
	backpropKernel(n, errors, pre, func(x float32) float32 {
		if x > 0 && x < 1 {
			return 1
		}
		return 0
	})
}

func BackpropSCReLU(n int, errors, pre Ptr[float32]) {
	backpropKernel(n, errors, pre, func(x float32) float32 {
		if x > 0 && x < 1 {
			return 2 * x
		}
		return 0
	})
}

// ReduceAdd accumulates out[j] += sum_i w[i]*in[i*size+j] over batchSize
// vectors. A nil weights pointer weighs every sample by one.
func ReduceAdd(batchSize, size int, weights, in, out Ptr[float32]) {
	var w []float32
	if !weights.IsNil() {
		w = weights.slice(batchSize)
	}
	var src = in.slice(batchSize * size)
	var dst = out.slice(size)
	launch(size, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			var sum float32
			for i := 0; i < batchSize; i++ {
				var x = src[i*size+j]
				if w != nil {
					x *= w[i]
				}
				sum += x
			}
			dst[j] += sum
		}
	})
	Synchronise()
}

// SplatAdd adds the size-element vector in to each of batchSize vectors in out.
func SplatAdd(batchSize, size int, in, out Ptr[float32]) {
	var src = in.slice(size)
	var dst = out.slice(batchSize * size)
	launch(batchSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var row = dst[i*size : (i+1)*size]
			for j := range row {
				row[j] += src[j]
			}
		}
	})
	Synchronise()
}

// SigmoidMSE replaces each output with the derivative of
// (sigmoid(out)-result)^2/2 and adds the summed squared error to errSum[0].
func SigmoidMSE(batchSize int, outputs, results, errSum Ptr[float32]) {
	var out = outputs.slice(batchSize)
	var res = results.slice(batchSize)
	var total = errSum.slice(1)
	var mu sync.Mutex
	var sum float64
	launch(batchSize, func(lo, hi int) {
		var local float64
		for i := lo; i < hi; i++ {
			var sigmoid = 1 / (1 + float32(math.Exp(float64(-out[i]))))
			var diff = sigmoid - res[i]
			out[i] = diff * sigmoid * (1 - sigmoid)
			local += float64(diff * diff)
		}
		mu.Lock()
		sum += local
		mu.Unlock()
	})
	total[0] += float32(sum)
	Synchronise()
}

// AdamW holds the constants of the weight update kernel.
type AdamW struct {
	Beta1     float32
	Beta2     float32
	Epsilon   float32
	MinWeight float32
	MaxWeight float32
}

// UpdateWeights applies one decoupled-weight-decay Adam step to size
// parameters, scaling every gradient by adj.
func UpdateWeights(size int, p AdamW, decayGamma, adj, rate float32,
	network, momentum, velocity, gradients Ptr[float32]) {
	var w = network.slice(size)
	var m = momentum.slice(size)
	var v = velocity.slice(size)
	var g = gradients.slice(size)
	launch(size, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var grad = adj * g[i]
			m[i] = p.Beta1*m[i] + (1-p.Beta1)*grad
			v[i] = p.Beta2*v[i] + (1-p.Beta2)*grad*grad
			var val = decayGamma*w[i] - rate*m[i]/(float32(math.Sqrt(float64(v[i])))+p.Epsilon)
			w[i] = min(max(val, p.MinWeight), p.MaxWeight)
		}
	})
	Synchronise()
}
