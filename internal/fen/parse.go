// Package fen reads the placement and side-to-move fields of a FEN record.
package fen

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrMalformed is matched by every parse failure (errors.Is).
var ErrMalformed = errors.New("malformed FEN")

// Error describes why a FEN record was rejected.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	if e.Input == "" {
		return "fen: " + e.Reason
	}
	return fmt.Sprintf("fen: %s (%q)", e.Reason, e.Input)
}

func (e *Error) Unwrap() error { return ErrMalformed }

// PieceCode is one of pnbrqk (black) or PNBRQK (white).
type PieceCode rune

// PieceCodes lists the standard set, black first.
var PieceCodes = []PieceCode{'p', 'r', 'n', 'b', 'q', 'k', 'P', 'R', 'N', 'B', 'Q', 'K'}

func (c PieceCode) Valid() bool {
	switch c {
	case 'p', 'r', 'n', 'b', 'q', 'k', 'P', 'R', 'N', 'B', 'Q', 'K':
		return true
	}
	return false
}

func (c PieceCode) White() bool { return c >= 'A' && c <= 'Z' }

// Kind returns the upper-case piece letter.
func (c PieceCode) Kind() byte {
	if c.White() {
		return byte(c)
	}
	return byte(c) - 'a' + 'A'
}

// AssetName is the conventional sprite stem: wP, bK, ...
func (c PieceCode) AssetName() string {
	if c.White() {
		return "w" + string(c.Kind())
	}
	return "b" + string(c.Kind())
}

func (c PieceCode) String() string { return string(rune(c)) }

// Placement is a piece on a square. File 0 is the a-file, rank 0 is the eighth rank
// (the first rank listed in the placement field).
type Placement struct {
	File  int
	Rank  int
	Piece PieceCode
}

// Position holds the two fields the renderer consumes.
type Position struct {
	Board string
	Side  string
}

// Parse splits a FEN record on whitespace. Only an empty record is an error; the placement
// field itself is read leniently by Placements.
func Parse(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return nil, &Error{Input: fen, Reason: "FEN string is empty"}
	}
	p := &Position{Board: fields[0], Side: "w"}
	if len(fields) > 1 && fields[1] == "b" {
		p.Side = "b"
	}
	return p, nil
}

// BlackToMove reports whether the board is drawn from black's side.
func (p *Position) BlackToMove() bool { return p != nil && p.Side == "b" }

// Placements walks the placement field left to right.
//
// '/' moves to the next rank, a digit skips that many files, a known piece code is
// yielded and any other character is skipped but still takes up a file. Rank and file
// counts are not checked; squares that fall outside the 8x8 grid are dropped.
func (p *Position) Placements() iter.Seq[Placement] {
	return func(yield func(Placement) bool) {
		if p == nil {
			return
		}
		file, rank := 0, 0
		for _, ch := range p.Board {
			switch {
			case ch == '/':
				rank++
				file = 0
				continue
			case ch >= '0' && ch <= '9':
				file += int(ch - '0')
				continue
			}
			code := PieceCode(ch)
			if code.Valid() && onBoard(file, rank) {
				if !yield(Placement{File: file, Rank: rank, Piece: code}) {
					return
				}
			}
			file++
		}
	}
}

func onBoard(file, rank int) bool {
	return file >= 0 && file < 8 && rank >= 0 && rank < 8
}
