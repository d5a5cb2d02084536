// Package inputs contains sparse input encodings of chess positions.
package inputs

import (
	"fmt"

	"github.com/ChizhovVadim/nnuetrain/internal/dataset"
)

const maxPieces = 32

// Chess768 indexes a feature by colour, piece kind and square, seen from
// both sides.
type Chess768 struct{}

func (Chess768) String() string { return "Chess768" }
func (Chess768) Size() int      { return 768 }
func (Chess768) MaxActive() int { return maxPieces }

func (Chess768) FeatureIndices(f dataset.Feature) (int, int) {
	return index768(f)
}

func index768(f dataset.Feature) (our, opp int) {
	var c = int(f.Piece>>3) & 1
	var pc = 64 * int(f.Piece&7)
	var sq = int(f.Square)
	our = [2]int{0, 384}[c] + pc + sq
	opp = [2]int{384, 0}[c] + pc + (sq ^ 56)
	return
}

// ChessBuckets is Chess768 repeated once per king bucket, each side using
// the bucket of its own king.
type ChessBuckets struct {
	scaled  [64]int
	buckets int
}

// NewChessBuckets takes the bucket of every king square.
func NewChessBuckets(layout [64]int) (*ChessBuckets, error) {
	var b = &ChessBuckets{}
	for sq, bucket := range layout {
		if bucket < 0 {
			return nil, fmt.Errorf("inputs: negative bucket %v for square %v", bucket, sq)
		}
		b.scaled[sq] = 768 * bucket
		b.buckets = max(b.buckets, bucket+1)
	}
	return b, nil
}

func (b *ChessBuckets) String() string { return fmt.Sprintf("ChessBuckets(%v)", b.buckets) }
func (b *ChessBuckets) Buckets() int   { return b.buckets }
func (b *ChessBuckets) Size() int      { return 768 * b.buckets }
func (b *ChessBuckets) MaxActive() int { return maxPieces }

func (b *ChessBuckets) FeatureIndices(f dataset.Feature) (int, int) {
	var our, opp = index768(f)
	return b.scaled[f.OurKsq] + our, b.scaled[f.OppKsq] + opp
}

// Parse returns an input type by name: "768" or "buckets:<n>", the latter
// splitting king squares into n groups of ranks from the first rank up.
func Parse(s string) (dataset.InputType, error) {
	if s == "768" || s == "chess768" {
		return Chess768{}, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "buckets:%d", &n); err == nil {
		if n <= 0 || n > 8 || 8%n != 0 {
			return nil, fmt.Errorf("inputs: bucket count %v must divide 8", n)
		}
		var layout [64]int
		for sq := range layout {
			layout[sq] = (sq / 8) / (8 / n)
		}
		var b, err = NewChessBuckets(layout)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("inputs: unknown input type %q", s)
}
