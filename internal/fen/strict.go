package fen

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// fields appended to short records before the full decode: side, castling, en passant,
// halfmove clock, fullmove number.
var defaultTail = []string{"w", "-", "-", "0", "1"}

// ParseStrict is Parse plus a validation pass: exactly eight ranks of eight files, only
// known piece codes, a side of "w" or "b", and a record that decodes as a chess position.
// Missing trailing fields are filled with defaults before decoding.
func ParseStrict(fen string) (*Position, error) {
	p, err := Parse(fen)
	if err != nil {
		return nil, err
	}
	if err := checkPlacement(p.Board); err != nil {
		return nil, &Error{Input: fen, Reason: err.Error()}
	}

	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] != "w" && fields[1] != "b" {
		return nil, &Error{Input: fen, Reason: fmt.Sprintf("side to move %q", fields[1])}
	}
	if len(fields) > 6 {
		return nil, &Error{Input: fen, Reason: fmt.Sprintf("%d fields", len(fields))}
	}
	full := append(fields, defaultTail[len(fields)-1:]...)
	if _, err := nchess.FEN(strings.Join(full, " ")); err != nil {
		return nil, &Error{Input: fen, Reason: err.Error()}
	}
	return p, nil
}

func checkPlacement(board string) error {
	ranks := strings.Split(board, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%d ranks", len(ranks))
	}
	for _, rank := range ranks {
		files := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				files += int(ch - '0')
			case PieceCode(ch).Valid():
				files++
			default:
				return fmt.Errorf("unknown piece %q", ch)
			}
		}
		if files != 8 {
			return fmt.Errorf("%d files at rank %q", files, rank)
		}
	}
	return nil
}
