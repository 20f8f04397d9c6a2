package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/config"
	"github.com/park285/fenpix/internal/fen"
	"github.com/park285/fenpix/internal/render"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		DefaultUpscale: 1,
		MaxUpscale:     4,
		SVGPieceSize:   16,
		EgressMode:     "http",
		BotPrefix:      "!fen",
	}
}

func TestParseCmdLine(t *testing.T) {
	opts, err := parseCmdLine([]string{"--upscale=3", "--strict", "--base64", "--assets=/a", startFEN, "-"})
	if err != nil {
		t.Fatalf("parseCmdLine: %v", err)
	}
	if opts.upscale != 3 || !opts.strict || !opts.strictSet || !opts.base64 || opts.assetsDir != "/a" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.fen != startFEN || opts.outputFile != "-" {
		t.Fatalf("positional args %q %q", opts.fen, opts.outputFile)
	}

	if opts, err := parseCmdLine(nil); err != nil || !opts.help {
		t.Fatalf("no args should show help")
	}
	if opts, err := parseCmdLine([]string{"--from-file=jobs.csv"}); err != nil || opts.fromFile != "jobs.csv" {
		t.Fatalf("from-file: %+v %v", opts, err)
	}
}

func TestParseCmdLineErrors(t *testing.T) {
	cases := map[string][]string{
		"missing value":   {"--upscale", startFEN, "-"},
		"zero upscale":    {"--upscale=0", startFEN, "-"},
		"bad svg size":    {"--svg-size=x", startFEN, "-"},
		"unknown option":  {"--size=400", startFEN, "-"},
		"no output":       {startFEN},
		"no fen":          {"--strict"},
		"empty send-room": {"--send-room=", startFEN, "-"},
	}
	for name, args := range cases {
		if _, err := parseCmdLine(args); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRunWritesStdoutAndFile(t *testing.T) {
	var stdout bytes.Buffer
	opts := &options{fen: startFEN, outputFile: "-", upscale: 2}
	if err := run(context.Background(), opts, testConfig(), &stdout, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if cfg.Width != 2*(8*assets.DefaultSquare+2*assets.DefaultBorder) {
		t.Fatalf("width %d", cfg.Width)
	}

	out := filepath.Join(t.TempDir(), "board.b64")
	opts = &options{fen: startFEN, outputFile: out, base64: true}
	if err := run(context.Background(), opts, testConfig(), &stdout, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	raw, _ := os.ReadFile(out)
	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(decoded)); err != nil {
		t.Fatalf("decode file: %v", err)
	}
}

func TestRunFromFile(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")
	csvPath := filepath.Join(dir, "jobs.csv")
	body := startFEN + "," + a + "\n8/8/8/8/8/8/8/8 b - - 0 1," + b + "\n"
	if err := os.WriteFile(csvPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), &options{fromFile: csvPath}, testConfig(), nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.png")
	err := run(context.Background(), &options{fen: "", outputFile: out}, testConfig(), nil, nil)
	if !errors.Is(err, fen.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output should not exist")
	}

	err = run(context.Background(), &options{fen: startFEN, outputFile: out, upscale: 1 << 20}, testConfig(), nil, nil)
	if !errors.Is(err, render.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	err = run(context.Background(), &options{fen: startFEN, outputFile: out, sendRoom: "r"}, testConfig(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "IRIS_BASE_URL") {
		t.Fatalf("expected IRIS_BASE_URL error, got %v", err)
	}
}
