package dataset

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/ChizhovVadim/nnuetrain/internal/math"
)

// RecordSize is the size of an encoded ChessBoard.
const RecordSize = 32

// Piece kinds. A coloured piece keeps the colour in bit 3, so the side to
// move owns pieces 0..5 and the opponent 8..13.
const (
	Pawn uint8 = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

const Black uint8 = 8

// ChessBoard is a position seen from the side to move: squares are flipped
// vertically and colours swapped when black is to move. Pieces are stored
// four bits each in the order of the occupancy bits.
type ChessBoard struct {
	Occ    uint64
	Pcs    [16]uint8
	Score  int16
	Result uint8
	Ksq    uint8
}

// Feature is one occupied square as fed to an input encoding.
type Feature struct {
	Piece  uint8
	Square uint8
	OurKsq uint8
	OppKsq uint8
}

// ResultValue is the game result for the side to move: 0, 0.5 or 1.
func (b *ChessBoard) ResultValue() float32 {
	return float32(b.Result) / 2
}

// BlendedResult mixes the game result with the win probability of the score.
func (b *ChessBoard) BlendedResult(blend, scale float32) float32 {
	return blend*b.ResultValue() + (1-blend)*math.ScoreToWin(float32(b.Score), scale)
}

func (b *ChessBoard) PieceCount() int {
	return bits.OnesCount64(b.Occ)
}

// OppKsq is the opponent king square from the opponent's point of view.
func (b *ChessBoard) OppKsq() uint8 {
	var idx = 0
	for occ := b.Occ; occ != 0; occ &= occ - 1 {
		if b.pieceAt(idx) == Black|King {
			return uint8(bits.TrailingZeros64(occ)) ^ 56
		}
		idx++
	}
	return 0
}

func (b *ChessBoard) pieceAt(idx int) uint8 {
	return (b.Pcs[idx/2] >> (4 * (idx & 1))) & 0b1111
}

// Features calls f for every occupied square in ascending square order.
func (b *ChessBoard) Features(f func(Feature)) {
	var oppKsq = b.OppKsq()
	var idx = 0
	for occ := b.Occ; occ != 0; occ &= occ - 1 {
		f(Feature{
			Piece:  b.pieceAt(idx),
			Square: uint8(bits.TrailingZeros64(occ)),
			OurKsq: b.Ksq,
			OppKsq: oppKsq,
		})
		idx++
	}
}

// Encode writes the little-endian 32 byte record into dst.
func (b *ChessBoard) Encode(dst []byte) {
	_ = dst[RecordSize-1]
	binary.LittleEndian.PutUint64(dst[0:], b.Occ)
	copy(dst[8:24], b.Pcs[:])
	binary.LittleEndian.PutUint16(dst[24:], uint16(b.Score))
	dst[26] = b.Result
	dst[27] = b.Ksq
	clear(dst[28:RecordSize])
}

// Validate checks what the decoders cannot: at most 32 pieces, known piece
// codes, one king per side with ours on Ksq, and a result of 0, 1 or 2.
func (b *ChessBoard) Validate() error {
	if n := b.PieceCount(); n > 32 {
		return fmt.Errorf("%v pieces", n)
	}
	if b.Ksq > 63 {
		return fmt.Errorf("king square %v", b.Ksq)
	}
	if b.Result > 2 {
		return fmt.Errorf("result %v", b.Result)
	}
	var kings [2]int
	var idx = 0
	for occ := b.Occ; occ != 0; occ &= occ - 1 {
		var piece = b.pieceAt(idx)
		if piece&7 > King {
			return fmt.Errorf("piece code %v", piece)
		}
		if piece&7 == King {
			kings[piece>>3]++
			if piece == King && uint8(bits.TrailingZeros64(occ)) != b.Ksq {
				return fmt.Errorf("king square %v does not hold our king", b.Ksq)
			}
		}
		idx++
	}
	if kings[0] != 1 || kings[1] != 1 {
		return fmt.Errorf("kings %v and %v", kings[0], kings[1])
	}
	return nil
}

func DecodeChessBoard(src []byte) ChessBoard {
	_ = src[RecordSize-1]
	var b ChessBoard
	b.Occ = binary.LittleEndian.Uint64(src[0:])
	copy(b.Pcs[:], src[8:24])
	b.Score = int16(binary.LittleEndian.Uint16(src[24:]))
	b.Result = src[26]
	b.Ksq = src[27]
	return b
}

// boardBuilder packs pieces given in side-to-move relative squares.
type boardBuilder struct {
	squares [64]int8
}

func newBoardBuilder() *boardBuilder {
	var bb = &boardBuilder{}
	for i := range bb.squares {
		bb.squares[i] = -1
	}
	return bb
}

func (bb *boardBuilder) put(sq int, piece uint8) {
	bb.squares[sq] = int8(piece)
}

func (bb *boardBuilder) build(score int16, result uint8) ChessBoard {
	var b = ChessBoard{Score: score, Result: result}
	var idx = 0
	for sq, piece := range bb.squares {
		if piece < 0 {
			continue
		}
		if uint8(piece) == King {
			b.Ksq = uint8(sq)
		}
		b.Occ |= 1 << uint(sq)
		b.Pcs[idx/2] |= uint8(piece) << (4 * (idx & 1))
		idx++
	}
	return b
}
