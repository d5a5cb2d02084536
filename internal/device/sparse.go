package device

import "fmt"

// SparseAffineForward computes, for every sample, both perspective halves
//
//	out[i][0:n]  = biases + sum weights[our]
//	out[i][n:2n] = biases + sum weights[opp]
//
// where weights is stored as one n-element row per input feature.
func SparseAffineForward(batchSize, maxActive, outputSize, inputSize int,
	weights, biases Ptr[float32], inputs Ptr[Feat], outputs Ptr[float32]) {
	var w = weights.slice(inputSize * outputSize)
	var b = biases.slice(outputSize)
	var feats = inputs.slice(batchSize * maxActive)
	var out = outputs.slice(batchSize * 2 * outputSize)
	launch(batchSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var our = out[2*i*outputSize : (2*i+1)*outputSize]
			var opp = out[(2*i+1)*outputSize : (2*i+2)*outputSize]
			copy(our, b)
			copy(opp, b)
			for _, f := range feats[i*maxActive : (i+1)*maxActive] {
				if f.Our == FeatEnd {
					break
				}
				if int(f.Our) >= inputSize || int(f.Opp) >= inputSize {
					recordError(fmt.Errorf("sparse affine: feature %v out of range %v", f, inputSize))
					return
				}
				var wOur = w[int(f.Our)*outputSize : (int(f.Our)+1)*outputSize]
				var wOpp = w[int(f.Opp)*outputSize : (int(f.Opp)+1)*outputSize]
				for j := range our {
					our[j] += wOur[j]
					opp[j] += wOpp[j]
				}
			}
		}
	})
	Synchronise()
}

// SparseAffineBackward scatters each sample's error halves into the gradient
// rows of its active features and into the bias gradient. Work is split over
// output columns so no two goroutines touch the same gradient element.
func SparseAffineBackward(batchSize, maxActive, outputSize, inputSize int,
	weightsGrad, biasesGrad Ptr[float32], inputs Ptr[Feat], errors Ptr[float32]) {
	var wg = weightsGrad.slice(inputSize * outputSize)
	var bg = biasesGrad.slice(outputSize)
	var feats = inputs.slice(batchSize * maxActive)
	var errs = errors.slice(batchSize * 2 * outputSize)
	launch(outputSize, func(lo, hi int) {
		for i := 0; i < batchSize; i++ {
			var ourErr = errs[2*i*outputSize : (2*i+1)*outputSize]
			var oppErr = errs[(2*i+1)*outputSize : (2*i+2)*outputSize]
			for j := lo; j < hi; j++ {
				bg[j] += ourErr[j] + oppErr[j]
			}
			for _, f := range feats[i*maxActive : (i+1)*maxActive] {
				if f.Our == FeatEnd {
					break
				}
				if int(f.Our) >= inputSize || int(f.Opp) >= inputSize {
					recordError(fmt.Errorf("sparse affine backprop: feature %v out of range %v", f, inputSize))
					return
				}
				var our = int(f.Our) * outputSize
				var opp = int(f.Opp) * outputSize
				for j := lo; j < hi; j++ {
					wg[our+j] += ourErr[j]
					wg[opp+j] += oppErr[j]
				}
			}
		}
	})
	Synchronise()
}
