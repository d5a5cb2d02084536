package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
)

// BinaryFile is a file of packed 32 byte ChessBoard records.
type BinaryFile struct {
	Path string
}

func (f BinaryFile) String() string { return f.Path }

func (f BinaryFile) Open() (RecordReader, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return &binaryReader{
		path:   f.Path,
		file:   file,
		reader: bufio.NewReaderSize(file, 1<<16),
		decode: DecodeChessBoard,
	}, nil
}

// MarlinFile is a file of 32 byte marlinformat records, converted to
// ChessBoard on read.
type MarlinFile struct {
	Path string
}

func (f MarlinFile) String() string { return f.Path }

func (f MarlinFile) Open() (RecordReader, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return &binaryReader{
		path:   f.Path,
		file:   file,
		reader: bufio.NewReaderSize(file, 1<<16),
		decode: DecodeMarlinFormat,
	}, nil
}

type binaryReader struct {
	path   string
	file   *os.File
	reader *bufio.Reader
	decode func([]byte) ChessBoard
	buf    [RecordSize]byte
	count  int
}

func (r *binaryReader) Next() (ChessBoard, error) {
	var _, err = io.ReadFull(r.reader, r.buf[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ChessBoard{}, fmt.Errorf("%v: truncated record after %v records", r.path, r.count)
		}
		if errors.Is(err, io.EOF) {
			return ChessBoard{}, io.EOF
		}
		return ChessBoard{}, fmt.Errorf("%v: %w", r.path, err)
	}
	r.count++
	if n := bits.OnesCount64(binary.LittleEndian.Uint64(r.buf[:])); n > 32 {
		return ChessBoard{}, fmt.Errorf("%v: bad record %v: %v pieces", r.path, r.count, n)
	}
	var board = r.decode(r.buf[:])
	if err := board.Validate(); err != nil {
		return ChessBoard{}, fmt.Errorf("%v: bad record %v: %w", r.path, r.count, err)
	}
	return board, nil
}

func (r *binaryReader) Close() error {
	return r.file.Close()
}

type BinaryWriter struct {
	w   *bufio.Writer
	buf [RecordSize]byte
}

func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{w: bufio.NewWriter(w)}
}

func (w *BinaryWriter) Write(board *ChessBoard) error {
	board.Encode(w.buf[:])
	var _, err = w.w.Write(w.buf[:])
	return err
}

func (w *BinaryWriter) Flush() error {
	return w.w.Flush()
}

// DecodeMarlinFormat converts a marlinformat record, which stores absolute
// squares, the side to move in the top bit of byte 24 and unmoved rooks as
// piece 6, into a side-to-move relative ChessBoard.
func DecodeMarlinFormat(src []byte) ChessBoard {
	var mf = DecodeChessBoard(src)
	var black = src[24]>>7 == 1
	var score = int16(uint16(src[28]) | uint16(src[29])<<8)
	var result = src[30]

	var bb = newBoardBuilder()
	var idx = 0
	for occ := mf.Occ; occ != 0; occ &= occ - 1 {
		var sq = uint8(bits.TrailingZeros64(occ))
		var piece = mf.pieceAt(idx)
		if piece&7 == 6 {
			piece = piece&Black | Rook
		}
		if black {
			piece ^= Black
			sq ^= 56
		}
		bb.put(int(sq), piece)
		idx++
	}
	if black {
		score = -score
		result = 2 - result
	}
	return bb.build(score, result)
}
