package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

const pieceChars = "PNBRQKpnbrqk"

// ParseEPD parses a text record. Three layouts are accepted, all with white
// relative score and result:
//
//	<6 fen fields> <score> [1.0]|[0.5]|[0.0]
//	<fen>;<score>;1|0.5|0
//	<4 fen fields> c9 "1-0";     (zurichess quiet-labeled, no score)
func ParseEPD(s string) (ChessBoard, error) {
	if index := strings.Index(s, "\""); index >= 0 {
		return parseZurichess(s[:index], s[index+1:])
	}
	if strings.Contains(s, ";") {
		return parseFenScoreResult(s)
	}

	var fields = strings.Fields(s)
	if len(fields) < 8 {
		return ChessBoard{}, fmt.Errorf("epd %q: expected 8 fields, got %v", s, len(fields))
	}
	score, err := strconv.ParseInt(fields[6], 10, 16)
	if err != nil {
		return ChessBoard{}, fmt.Errorf("epd %q: bad score: %w", s, err)
	}
	var result uint8
	switch fields[7] {
	case "[1.0]":
		result = 2
	case "[0.5]":
		result = 1
	case "[0.0]":
		result = 0
	default:
		return ChessBoard{}, fmt.Errorf("epd %q: bad game result %q", s, fields[7])
	}
	return FromFEN(fields[0], fields[1], int16(score), result)
}

func parseFenScoreResult(s string) (ChessBoard, error) {
	var parts = strings.Split(s, ";")
	if len(parts) != 3 {
		return ChessBoard{}, fmt.Errorf("fen;score;result %q: expected 3 parts, got %v", s, len(parts))
	}
	score, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return ChessBoard{}, fmt.Errorf("fen;score;result %q: bad score: %w", s, err)
	}
	var result uint8
	switch strings.TrimSpace(parts[2]) {
	case "1":
		result = 2
	case "0.5":
		result = 1
	case "0":
		result = 0
	default:
		return ChessBoard{}, fmt.Errorf("fen;score;result %q: bad game result %q", s, parts[2])
	}
	var fields = strings.Fields(parts[0])
	if len(fields) < 2 {
		return ChessBoard{}, fmt.Errorf("fen;score;result %q: missing side to move", s)
	}
	return FromFEN(fields[0], fields[1], int16(score), result)
}

func parseZurichess(fen, strScore string) (ChessBoard, error) {
	var result uint8
	if strings.HasPrefix(strScore, "1/2-1/2") {
		result = 1
	} else if strings.HasPrefix(strScore, "1-0") {
		result = 2
	} else if strings.HasPrefix(strScore, "0-1") {
		result = 0
	} else {
		return ChessBoard{}, fmt.Errorf("zurichess %q: bad game result", strScore)
	}
	var fields = strings.Fields(fen)
	if len(fields) < 2 {
		return ChessBoard{}, fmt.Errorf("zurichess %q: missing side to move", fen)
	}
	return FromFEN(fields[0], fields[1], 0, result)
}

// FromFEN builds a board from the placement and side-to-move fields of a FEN.
// Score and result are from white's point of view.
func FromFEN(placement, stm string, score int16, result uint8) (ChessBoard, error) {
	var black bool
	switch stm {
	case "w":
		black = false
	case "b":
		black = true
	default:
		return ChessBoard{}, fmt.Errorf("fen: bad side to move %q", stm)
	}

	var rows = strings.Split(placement, "/")
	if len(rows) != 8 {
		return ChessBoard{}, fmt.Errorf("fen %q: expected 8 ranks, got %v", placement, len(rows))
	}

	var bb = newBoardBuilder()
	var kings [2]int
	var pieces = 0
	for i, row := range rows {
		var rank = 7 - i
		var col = 0
		for _, ch := range row {
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			var index = strings.IndexRune(pieceChars, ch)
			if index < 0 {
				return ChessBoard{}, fmt.Errorf("fen %q: bad piece %q", placement, ch)
			}
			if col >= 8 {
				return ChessBoard{}, fmt.Errorf("fen %q: rank %v too long", placement, rank+1)
			}
			pieces++
			if pieces > 32 {
				return ChessBoard{}, fmt.Errorf("fen %q: more than 32 pieces", placement)
			}
			var piece = uint8(index/6)<<3 | uint8(index%6)
			var sq = 8*rank + col
			if black {
				piece ^= Black
				sq ^= 56
			}
			if piece&7 == King {
				kings[piece>>3]++
			}
			bb.put(sq, piece)
			col++
		}
		if col != 8 {
			return ChessBoard{}, fmt.Errorf("fen %q: rank %v has %v files", placement, rank+1, col)
		}
	}
	if kings[0] != 1 || kings[1] != 1 {
		return ChessBoard{}, fmt.Errorf("fen %q: expected one king per side", placement)
	}

	if black {
		score = -score
		result = 2 - result
	}
	return bb.build(score, result), nil
}
