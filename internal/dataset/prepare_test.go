package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChizhovVadim/nnuetrain/internal/device"
)

// pieceSquare indexes features by coloured piece and square only.
type pieceSquare struct {
	maxActive int
}

func (p pieceSquare) Size() int      { return 16 * 64 }
func (p pieceSquare) MaxActive() int { return p.maxActive }

func (p pieceSquare) FeatureIndices(f Feature) (int, int) {
	var index = int(f.Piece)*64 + int(f.Square)
	return index, index ^ 56 ^ 8*64
}

func TestPrepareBatch(t *testing.T) {
	var boards []ChessBoard
	for _, s := range []string{
		"4k3/8/8/8/8/8/8/R3K3 w - - 0 1 0 [1.0]",
		"4k3/8/8/8/8/8/8/4K3 b - - 0 1 400 [0.0]",
		"4k3/8/8/8/8/8/8/4K3 w - - 0 1 0 [0.5]",
	} {
		board, err := ParseEPD(s)
		require.NoError(t, err)
		boards = append(boards, board)
	}

	for _, threads := range []int{1, 2, 8} {
		var batch = PrepareBatch(pieceSquare{maxActive: 3}, boards, threads, 0.5, 400)
		require.Equal(t, 3, batch.Len())
		require.Len(t, batch.Inputs, 9)

		var end = device.Feat{Our: device.FeatEnd, Opp: device.FeatEnd}
		assert.Equal(t, device.Feat{Our: 3 * 64, Opp: 3*64 ^ 56 ^ 512}, batch.Inputs[0])
		assert.NotEqual(t, end, batch.Inputs[2])
		assert.Equal(t, end, batch.Inputs[5])
		assert.Equal(t, end, batch.Inputs[8])

		assert.InDelta(t, 0.75, batch.Results[0], 1e-6)
		// black to move with white +400 and a black win
		assert.InDelta(t, 0.5+0.5*(1-0.7310586), batch.Results[1], 1e-6)
		assert.InDelta(t, 0.5, batch.Results[2], 1e-6)
	}
}
