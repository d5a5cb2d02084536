package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source can be read from the beginning any number of times.
type Source interface {
	Open() (RecordReader, error)
}

// RecordReader returns io.EOF after the last record.
type RecordReader interface {
	Next() (ChessBoard, error)
	Close() error
}

// ReadAll decodes every record of the source.
func ReadAll(source Source) ([]ChessBoard, error) {
	var r, err = source.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var result []ChessBoard
	for {
		var board, err = r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return result, nil
			}
			return nil, err
		}
		result = append(result, board)
	}
}

// Boards is an in-memory source.
type Boards []ChessBoard

func (b Boards) String() string { return fmt.Sprintf("memory(%v)", len(b)) }

func (b Boards) Open() (RecordReader, error) {
	return &boardsReader{boards: b}, nil
}

type boardsReader struct {
	boards Boards
	index  int
}

func (r *boardsReader) Next() (ChessBoard, error) {
	if r.index >= len(r.boards) {
		return ChessBoard{}, io.EOF
	}
	r.index++
	return r.boards[r.index-1], nil
}

func (r *boardsReader) Close() error { return nil }

// TextFile is a file of EPD lines, see ParseEPD. Blank lines are skipped.
type TextFile struct {
	Path string
}

func (f TextFile) String() string { return f.Path }

func (f TextFile) Open() (RecordReader, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return &textReader{
		path:    f.Path,
		file:    file,
		scanner: bufio.NewScanner(file),
	}, nil
}

type textReader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func (r *textReader) Next() (ChessBoard, error) {
	for r.scanner.Scan() {
		r.line++
		var s = strings.TrimSpace(r.scanner.Text())
		if s == "" {
			continue
		}
		var board, err = ParseEPD(s)
		if err != nil {
			return ChessBoard{}, fmt.Errorf("%v:%v: %w", r.path, r.line, err)
		}
		return board, nil
	}
	if err := r.scanner.Err(); err != nil {
		return ChessBoard{}, fmt.Errorf("%v:%v: %w", r.path, r.line, err)
	}
	return ChessBoard{}, io.EOF
}

func (r *textReader) Close() error {
	return r.file.Close()
}

// OpenFile returns the source for a dataset file. Format is one of text,
// binary or marlin; auto picks by file extension.
func OpenFile(path, format string) (Source, error) {
	if format == "auto" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".epd", ".txt", ".fen":
			format = "text"
		case ".bin", ".data":
			format = "binary"
		default:
			return nil, fmt.Errorf("cannot guess format of %v", path)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch format {
	case "text":
		return TextFile{Path: path}, nil
	case "binary":
		return BinaryFile{Path: path}, nil
	case "marlin":
		return MarlinFile{Path: path}, nil
	}
	return nil, fmt.Errorf("unknown dataset format %q", format)
}
