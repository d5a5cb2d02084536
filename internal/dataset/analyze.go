package dataset

import (
	"fmt"
	"io"
)

// Stats summarises the positions of a dataset.
type Stats struct {
	Positions int
	Wins      int
	Draws     int
	Losses    int
	// Pieces[n] counts positions with n pieces on the board.
	Pieces      [33]int
	sumAbsScore int64
}

func (s *Stats) Add(board *ChessBoard) {
	s.Positions++
	switch board.Result {
	case 2:
		s.Wins++
	case 1:
		s.Draws++
	default:
		s.Losses++
	}
	s.Pieces[board.PieceCount()]++
	var score = int64(board.Score)
	if score < 0 {
		score = -score
	}
	s.sumAbsScore += score
}

// AddAll adds every board of a dataset already in memory.
func (s *Stats) AddAll(boards []ChessBoard) {
	for i := range boards {
		s.Add(&boards[i])
	}
}

// MeanAbsScore is the average absolute side-to-move score.
func (s *Stats) MeanAbsScore() float64 {
	if s.Positions == 0 {
		return 0
	}
	return float64(s.sumAbsScore) / float64(s.Positions)
}

func (s *Stats) String() string {
	return fmt.Sprintf("positions %v wins %v draws %v losses %v mean |score| %.1f",
		s.Positions, s.Wins, s.Draws, s.Losses, s.MeanAbsScore())
}

// Analyze reads source to the end, collecting stats of every record.
func Analyze(source Source) (Stats, error) {
	var stats Stats
	var r, err = source.Open()
	if err != nil {
		return stats, err
	}
	defer r.Close()
	for {
		var board, err = r.Next()
		if err != nil {
			if err == io.EOF {
				return stats, nil
			}
			return stats, err
		}
		stats.Add(&board)
	}
}
