package dataset

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

// InputType maps board features to (our, opp) indices of a sparse input.
type InputType interface {
	// Size is the input dimension.
	Size() int
	// MaxActive bounds the number of features of one board.
	MaxActive() int
	FeatureIndices(f Feature) (our, opp int)
}

// GpuBatch is a batch ready to be copied to the device.
type GpuBatch struct {
	Inputs    []device.Feat
	Results   []float32
	MaxActive int
}

func (b *GpuBatch) Len() int { return len(b.Results) }

// PrepareBatch extracts features and blended targets for boards using up to
// threads goroutines. Feature lists shorter than MaxActive end with
// device.FeatEnd.
func PrepareBatch(input InputType, boards []ChessBoard, threads int, blend, scale float32) *GpuBatch {
	var maxActive = input.MaxActive()
	var batch = &GpuBatch{
		Inputs:    make([]device.Feat, len(boards)*maxActive),
		Results:   make([]float32, len(boards)),
		MaxActive: maxActive,
	}

	threads = max(1, min(threads, len(boards)))
	var chunk = (len(boards) + threads - 1) / threads

	var g errgroup.Group
	for lo := 0; lo < len(boards); lo += chunk {
		lo := lo
		var hi = min(lo+chunk, len(boards))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				var feats = batch.Inputs[i*maxActive : (i+1)*maxActive]
				var n = 0
				boards[i].Features(func(f Feature) {
					if n == maxActive {
						panic(fmt.Sprintf("board has more than %v features", maxActive))
					}
					var our, opp = input.FeatureIndices(f)
					feats[n] = device.Feat{Our: uint16(our), Opp: uint16(opp)}
					n++
				})
				if n < maxActive {
					feats[n] = device.Feat{Our: device.FeatEnd, Opp: device.FeatEnd}
				}
				batch.Results[i] = boards[i].BlendedResult(blend, scale)
			}
			return nil
		})
	}
	g.Wait()
	return batch
}
