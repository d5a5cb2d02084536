package dataset

import (
	"sync/atomic"
	"time"
)

var seedCounter atomic.Uint64

// xorshift is a fast generator for shuffling; quality beyond that is not needed.
type xorshift struct {
	state uint64
}

// newXorshift seeds from the clock mixed with a counter, so generators made
// within the same microsecond still differ.
func newXorshift() *xorshift {
	var seed = uint64(time.Now().UnixMicro())&0xFFFFFFFF ^ seedCounter.Add(1)*0x9E3779B97F4A7C15
	if seed == 0 {
		seed = 1
	}
	return &xorshift{state: seed}
}

func (r *xorshift) next() uint64 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 7
	r.state ^= r.state << 17
	return r.state
}

// shuffle permutes boards in place (Fisher-Yates).
func (r *xorshift) shuffle(boards []ChessBoard) {
	for i := len(boards) - 1; i > 0; i-- {
		var j = int(r.next() % uint64(i+1))
		boards[i], boards[j] = boards[j], boards[i]
	}
}

// Shuffle permutes boards in place with a freshly seeded generator.
func Shuffle(boards []ChessBoard) {
	newXorshift().shuffle(boards)
}
