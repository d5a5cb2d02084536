package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreToWin(t *testing.T) {
	assert.InDelta(t, 0.5, ScoreToWin(0, 400), 1e-6)
	assert.InDelta(t, 0.7310586, ScoreToWin(400, 400), 1e-6)
	assert.InDelta(t, 1-0.7310586, ScoreToWin(-400, 400), 1e-6)
}
