package fen

import (
	"errors"
	"slices"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func collect(t *testing.T, fen string) []Placement {
	t.Helper()
	p, err := Parse(fen)
	if err != nil {
		t.Fatalf("Parse(%q): %v", fen, err)
	}
	return slices.Collect(p.Placements())
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Parse(in)
		if err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q): expected ErrMalformed, got %v", in, err)
		}
		var fe *Error
		if !errors.As(err, &fe) {
			t.Fatalf("Parse(%q): expected *Error, got %T", in, err)
		}
	}
}

func TestSideToMove(t *testing.T) {
	cases := []struct {
		fen   string
		black bool
	}{
		{"8/8/8/8/8/8/8/8", false},
		{"8/8/8/8/8/8/8/8 w", false},
		{"8/8/8/8/8/8/8/8 b", true},
		{"8/8/8/8/8/8/8/8 b KQkq - 0 1", true},
		{"8/8/8/8/8/8/8/8 B", false},
		{"8/8/8/8/8/8/8/8 x", false},
	}
	for _, tc := range cases {
		p, err := Parse(tc.fen)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.fen, err)
		}
		if p.BlackToMove() != tc.black {
			t.Fatalf("Parse(%q).BlackToMove() = %v, want %v", tc.fen, p.BlackToMove(), tc.black)
		}
	}
}

func TestPlacementsStartPosition(t *testing.T) {
	got := collect(t, startFEN)
	if len(got) != 32 {
		t.Fatalf("expected 32 placements, got %d", len(got))
	}
	first := got[0]
	if first != (Placement{File: 0, Rank: 0, Piece: 'r'}) {
		t.Fatalf("first placement = %+v", first)
	}
	last := got[len(got)-1]
	if last != (Placement{File: 7, Rank: 7, Piece: 'R'}) {
		t.Fatalf("last placement = %+v", last)
	}
	for _, pl := range got {
		if pl.Rank == 1 && pl.Piece != 'p' {
			t.Fatalf("rank 7 should hold black pawns, got %+v", pl)
		}
	}
}

func TestPlacementCountMatchesPieceLetters(t *testing.T) {
	fens := []string{
		startFEN,
		"r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		"8/8/8/4k3/8/8/4K3/8 b - - 0 1",
		"8/8/8/8/8/8/8/8",
	}
	for _, f := range fens {
		p, _ := Parse(f)
		want := 0
		for _, ch := range p.Board {
			if PieceCode(ch).Valid() {
				want++
			}
		}
		if got := len(collect(t, f)); got != want {
			t.Fatalf("%q: %d placements, want %d", f, got, want)
		}
	}
}

func TestUnknownCharactersTakeAFile(t *testing.T) {
	got := collect(t, "8/8/8/8/8/8/8/xxxxxxxx")
	if len(got) != 0 {
		t.Fatalf("expected no placements, got %v", got)
	}

	got = collect(t, "x?K5/8/8/8/8/8/8/8")
	if len(got) != 1 || got[0] != (Placement{File: 2, Rank: 0, Piece: 'K'}) {
		t.Fatalf("unexpected placements: %v", got)
	}
}

func TestOffBoardSquaresDropped(t *testing.T) {
	// ninth rank and ninth file are not on the board
	got := collect(t, "8/8/8/8/8/8/8/8/K7")
	if len(got) != 0 {
		t.Fatalf("expected no placements, got %v", got)
	}
	got = collect(t, "8k/8/8/8/8/8/8/8")
	if len(got) != 0 {
		t.Fatalf("expected no placements, got %v", got)
	}
	// short rank is not padded
	got = collect(t, "k/K7")
	if len(got) != 2 || got[1] != (Placement{File: 0, Rank: 1, Piece: 'K'}) {
		t.Fatalf("unexpected placements: %v", got)
	}
}

func TestPlacementsStopsEarly(t *testing.T) {
	p, _ := Parse(startFEN)
	n := 0
	for range p.Placements() {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("expected to stop after 3, got %d", n)
	}
}

func TestPieceCodeNames(t *testing.T) {
	cases := map[PieceCode]string{'P': "wP", 'k': "bK", 'n': "bN", 'Q': "wQ"}
	for code, want := range cases {
		if got := code.AssetName(); got != want {
			t.Fatalf("%c.AssetName() = %q, want %q", code, got, want)
		}
	}
	if PieceCode('x').Valid() {
		t.Fatalf("x should not be a piece code")
	}
	if len(PieceCodes) != 12 {
		t.Fatalf("expected 12 piece codes")
	}
}
