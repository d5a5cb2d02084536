package math

import "math"

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// ScoreToWin maps a centipawn score to an expected game result in [0, 1].
func ScoreToWin(score, scale float32) float32 {
	return float32(Sigmoid(float64(score / scale)))
}
