package inputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
)

func TestChess768(t *testing.T) {
	var input Chess768

	var our, opp = input.FeatureIndices(dataset.Feature{Piece: dataset.Knight, Square: 1})
	assert.Equal(t, 64+1, our)
	assert.Equal(t, 384+64+57, opp)

	our, opp = input.FeatureIndices(dataset.Feature{Piece: dataset.Black | dataset.King, Square: 60})
	assert.Equal(t, 384+5*64+60, our)
	assert.Equal(t, 5*64+4, opp)
}

func TestChess768IsSymmetric(t *testing.T) {
	var input Chess768
	var white, err = dataset.ParseEPD("4k3/8/8/8/8/8/3P4/4K3 w - - 0 1 0 [0.5]")
	require.NoError(t, err)
	black, err := dataset.ParseEPD("4k3/3p4/8/8/8/8/8/4K3 b - - 0 1 0 [0.5]")
	require.NoError(t, err)

	var collect = func(b dataset.ChessBoard) [][2]int {
		var result [][2]int
		b.Features(func(f dataset.Feature) {
			var our, opp = input.FeatureIndices(f)
			result = append(result, [2]int{our, opp})
		})
		return result
	}
	assert.Equal(t, collect(white), collect(black))
}

func TestChessBuckets(t *testing.T) {
	var input, err = Parse("buckets:2")
	require.NoError(t, err)
	assert.Equal(t, 2*768, input.Size())
	assert.Equal(t, 32, input.MaxActive())

	var our, opp = input.FeatureIndices(dataset.Feature{Piece: dataset.Pawn, Square: 8, OurKsq: 4, OppKsq: 60})
	assert.Equal(t, 8, our)
	assert.Equal(t, 768+384+(8^56), opp)
}

func TestParse(t *testing.T) {
	var input, err = Parse("768")
	require.NoError(t, err)
	assert.Equal(t, Chess768{}, input)

	for _, s := range []string{"buckets:3", "buckets:0", "halfkp"} {
		_, err = Parse(s)
		assert.Error(t, err, s)
	}

	_, err = NewChessBuckets([64]int{-1})
	assert.Error(t, err)
}
