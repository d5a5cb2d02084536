package trainer

import (
	"fmt"
	"math/rand"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
	"github.com/ChizhovVadim/nnuetrain/internal/device"
	"github.com/ChizhovVadim/nnuetrain/internal/optimiser"
	"github.com/ChizhovVadim/nnuetrain/internal/tensor"
)

const initWeightRange = 0.01

type nodeSpec struct {
	size       int
	affine     bool
	activation tensor.Activation
}

// Builder describes a network: a feature transformer applied to both sides,
// then a sequence of activations and affine layers ending in one output.
type Builder struct {
	input         dataset.InputType
	batchSize     int
	ftSize        int
	nodes         []nodeSpec
	quantisations []int
	scale         float32
	params        optimiser.Params
	seed          int64
	size          int
}

func NewBuilder() *Builder {
	return &Builder{
		scale:  400,
		params: optimiser.DefaultParams(),
	}
}

func (b *Builder) SetInput(input dataset.InputType) *Builder {
	b.input = input
	return b
}

func (b *Builder) SetBatchSize(batchSize int) *Builder {
	b.batchSize = batchSize
	return b
}

func (b *Builder) SetEvalScale(scale float32) *Builder {
	b.scale = scale
	return b
}

// SetQuantisations takes one multiplier for the feature transformer and one
// per affine layer.
func (b *Builder) SetQuantisations(quantisations ...int) *Builder {
	b.quantisations = quantisations
	return b
}

func (b *Builder) SetOptimiserParams(params optimiser.Params) *Builder {
	b.params = params
	return b
}

func (b *Builder) SetSeed(seed int64) *Builder {
	b.seed = seed
	return b
}

func (b *Builder) FeatureTransformer(size int) *Builder {
	if len(b.nodes) != 0 {
		panic("Feature transformer must come before any layer!")
	}
	b.ftSize = size
	return b
}

func (b *Builder) lastLayerSize() int {
	if len(b.nodes) != 0 {
		return b.nodes[len(b.nodes)-1].size
	}
	return 2 * b.ftSize
}

func (b *Builder) AddLayer(size int) *Builder {
	if b.ftSize == 0 {
		panic("Feature transformer is not set!")
	}
	b.size += (b.lastLayerSize() + 1) * size
	b.nodes = append(b.nodes, nodeSpec{size: size, affine: true})
	return b
}

func (b *Builder) Activate(op tensor.Activation) *Builder {
	if b.ftSize == 0 {
		panic("Feature transformer is not set!")
	}
	b.nodes = append(b.nodes, nodeSpec{size: b.lastLayerSize(), activation: op})
	return b
}

type quantiseInfo struct {
	val   int
	start int
}

func (b *Builder) Build() *Trainer {
	if b.input == nil {
		panic("Input type is not set!")
	}
	if b.batchSize <= 0 {
		panic(fmt.Sprintf("Invalid batch size %v", b.batchSize))
	}
	if len(b.nodes) == 0 || b.lastLayerSize() != 1 {
		panic("Network must end with a single output!")
	}

	var inputSize = b.input.Size()
	var netSize = (inputSize+1)*b.ftSize + b.size
	var opt = optimiser.New(netSize, b.params)

	var ft = featureTransformer{
		weights:     tensor.NewTensor(tensor.NewShape(b.ftSize, inputSize)),
		biases:      tensor.NewTensor(tensor.NewShape(1, b.ftSize)),
		weightsGrad: tensor.NewTensor(tensor.NewShape(b.ftSize, inputSize)),
		biasesGrad:  tensor.NewTensor(tensor.NewShape(1, b.ftSize)),
		outputs:     tensor.NewTensorBatch(tensor.NewShape(1, 2*b.ftSize), b.batchSize),
	}

	var offset = 0
	bindParams(opt, &offset, ft.weights, ft.weightsGrad)
	bindParams(opt, &offset, ft.biases, ft.biasesGrad)

	var quantiser []quantiseInfo
	var qi = 0
	var accq = 1
	if len(b.quantisations) != 0 {
		quantiser = append(quantiser, quantiseInfo{val: b.quantisations[qi], start: 0})
		accq *= b.quantisations[qi]
		qi++
	}

	var nodes []node
	var inpSize = 2 * b.ftSize
	for _, spec := range b.nodes {
		var op operation
		if spec.affine {
			var wsh = tensor.NewShape(inpSize, spec.size)
			var bsh = tensor.NewShape(1, spec.size)
			var layer = &affine{
				weights:      tensor.NewTensor(wsh),
				biases:       tensor.NewTensor(bsh),
				weightsGrad:  tensor.NewTensor(wsh),
				biasesGrad:   tensor.NewTensor(bsh),
				intermediate: tensor.NewTensorBatch(wsh, b.batchSize),
			}

			if len(b.quantisations) != 0 {
				if qi >= len(b.quantisations) {
					panic("Incorrectly specified number of quantisations!")
				}
				quantiser = append(quantiser, quantiseInfo{val: b.quantisations[qi], start: offset})
			}
			bindParams(opt, &offset, layer.weights, layer.weightsGrad)

			if len(b.quantisations) != 0 {
				accq *= b.quantisations[qi]
				quantiser = append(quantiser, quantiseInfo{val: accq, start: offset})
				qi++
			}
			bindParams(opt, &offset, layer.biases, layer.biasesGrad)
			op = layer
		} else {
			op = activation{op: spec.activation}
		}
		nodes = append(nodes, node{
			outputs: tensor.NewTensorBatch(tensor.NewShape(1, spec.size), b.batchSize),
			op:      op,
		})
		inpSize = spec.size
	}

	if qi != len(b.quantisations) {
		panic("Incorrectly specified number of quantisations!")
	}
	if offset != netSize {
		panic(fmt.Sprintf("Parameter offsets %v do not add up to net size %v!", offset, netSize))
	}

	var net = make([]float32, netSize)
	initUniform(rand.New(rand.NewSource(b.seed)), net, initWeightRange)
	opt.LoadWeightsFromCPU(net)

	var errSum = device.Alloc[float32](1)
	var testErrSum = device.Alloc[float32](1)

	return &Trainer{
		input:      b.input,
		optimiser:  opt,
		ft:         ft,
		nodes:      nodes,
		inputs:     tensor.NewSparseTensor(b.batchSize, inputSize, b.input.MaxActive()),
		results:    tensor.NewTensorBatch(tensor.NewShape(1, 1), b.batchSize),
		errSum:     errSum,
		testErrSum: testErrSum,
		scale:      b.scale,
		quantiser:  quantiser,
	}
}

// bindParams points a parameter tensor and its gradient at the optimiser
// buffers and advances offset past them.
func bindParams(opt *optimiser.Optimiser, offset *int, params, grads *tensor.Tensor) {
	params.SetPtr(opt.WeightsOffset(*offset))
	grads.SetPtr(opt.GradientsOffset(*offset))
	*offset += params.NumElements()
}

func initUniform(rnd *rand.Rand, data []float32, max float32) {
	for i := range data {
		data[i] = (rnd.Float32() - 0.5) * 2 * max
	}
}
