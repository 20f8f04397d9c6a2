package bot

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/irisfast"
	"github.com/park285/fenpix/internal/msgcat"
	svcboard "github.com/park285/fenpix/internal/service/board"
)

type sent struct {
	kind, room, data string
}

type recordEgress struct {
	mu  sync.Mutex
	out []sent
}

func (r *recordEgress) SendText(_ context.Context, room, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, sent{"text", room, message})
	return nil
}

func (r *recordEgress) SendImage(_ context.Context, room, imageBase64 string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, sent{"image", room, imageBase64})
	return nil
}

func newHandler(t *testing.T, cfg Config) (*Handler, *recordEgress) {
	t.Helper()
	set, err := assets.Default()
	if err != nil {
		t.Fatalf("assets.Default: %v", err)
	}
	svc, err := svcboard.NewService(set, svcboard.Config{MaxUpscale: 4})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	eg := &recordEgress{}
	if cfg.Prefix == "" {
		cfg.Prefix = "!fen"
	}
	return New(svc, eg, cfg, nil), eg
}

func msg(room, text string) *irisfast.Message {
	return &irisfast.Message{Room: room, Msg: text}
}

func TestHandleRendersBoard(t *testing.T) {
	h, eg := newHandler(t, Config{})
	err := h.Handle(context.Background(), msg("r1", "!fen x2 rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(eg.out) != 1 || eg.out[0].kind != "image" || eg.out[0].room != "r1" {
		t.Fatalf("unexpected output %+v", eg.out)
	}
	raw, err := base64.StdEncoding.DecodeString(eg.out[0].data)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if cfg.Width != 2*(8*assets.DefaultSquare+2*assets.DefaultBorder) {
		t.Fatalf("width %d", cfg.Width)
	}
}

func TestHandleReportsErrorsAsText(t *testing.T) {
	cases := map[string]string{
		"!fen":                    "FEN board renderer",
		"!fen help":               "FEN board renderer",
		"!fen xx 8/8/8/8/8/8/8/8": "Upscale must look like x2",
		"!fen x9 8/8/8/8/8/8/8/8": "between 1 and 4",
		"!fen x0 8/8/8/8/8/8/8/8": "between 1 and 4",
		"!fen strict 8/8/8/8/8/8": "Invalid FEN",
	}
	for text, want := range cases {
		h, eg := newHandler(t, Config{})
		if err := h.Handle(context.Background(), msg("r", text)); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if len(eg.out) != 1 || eg.out[0].kind != "text" || !strings.Contains(eg.out[0].data, want) {
			t.Fatalf("%q: got %+v, want text containing %q", text, eg.out, want)
		}
	}
}

func TestHandleUsesMessageOverrides(t *testing.T) {
	cat, err := msgcat.New(fstest.MapFS{"ko.yaml": {Data: []byte("bot:\n  render_failed: \"렌더링 실패\"\n  invalid_fen: \"잘못된 FEN: {{.Reason}}\"\n")}})
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	h, eg := newHandler(t, Config{Messages: cat})
	if err := h.Handle(context.Background(), msg("r", "!fen strict 8/8")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(eg.out) != 1 || !strings.HasPrefix(eg.out[0].data, "잘못된 FEN: ") {
		t.Fatalf("unexpected output %+v", eg.out)
	}
}

func TestParseCommand(t *testing.T) {
	h, _ := newHandler(t, Config{DefaultUpscale: 3})
	req, err := h.parseCommand("strict X2 8/8/8/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatalf("parseCommand: %v", err)
	}
	if req.Upscale != 2 || req.Strict == nil || !*req.Strict || req.FEN != "8/8/8/8/8/8/8/8 b - - 0 1" {
		t.Fatalf("unexpected request %+v", req)
	}
	req, _ = h.parseCommand("8/8/8/8/8/8/8/8")
	if req.Upscale != 3 || req.Strict != nil {
		t.Fatalf("defaults not applied: %+v", req)
	}
}

func TestAccepts(t *testing.T) {
	h, _ := newHandler(t, Config{AllowedRooms: []string{"ok"}})
	if !h.Accepts(msg("ok", "  !fen 8/8/8/8/8/8/8/8")) {
		t.Fatalf("should accept")
	}
	if h.Accepts(msg("other", "!fen 8/8/8/8/8/8/8/8")) {
		t.Fatalf("room filter ignored")
	}
	if h.Accepts(msg("ok", "hello")) || h.Accepts(nil) {
		t.Fatalf("non-commands accepted")
	}
}
