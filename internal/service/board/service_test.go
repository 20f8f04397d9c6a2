package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/park285/fenpix/internal/archive"
	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/cache"
	"github.com/park285/fenpix/internal/fen"
	"github.com/park285/fenpix/internal/render"
)

const e4FEN = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

type memArchive struct {
	mu   sync.Mutex
	recs []archive.Record
	err  error
}

func (m *memArchive) Save(_ context.Context, rec archive.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func newService(t *testing.T, cfg Config, opts ...Option) *Service {
	t.Helper()
	set, err := assets.Default()
	if err != nil {
		t.Fatalf("assets.Default: %v", err)
	}
	s, err := NewService(set, cfg, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func newRedisCache(t *testing.T) (*cache.PNGCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c, err := cache.Dial(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("cache.Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRenderMatchesRenderer(t *testing.T) {
	s := newService(t, Config{})
	res, err := s.Render(context.Background(), Request{FEN: e4FEN, Upscale: 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	set, _ := assets.Default()
	r, _ := render.NewRenderer(set)
	want, _ := r.RenderPNG(e4FEN, 2)
	if !bytes.Equal(res.PNG, want) {
		t.Fatalf("service output differs from renderer output")
	}
	if _, err := uuid.Parse(res.RequestID); err != nil {
		t.Fatalf("request id %q: %v", res.RequestID, err)
	}
	if res.CacheHit {
		t.Fatalf("no cache configured")
	}
}

func TestRenderUsesCache(t *testing.T) {
	c, mr := newRedisCache(t)
	arch := &memArchive{}
	s := newService(t, Config{Source: "test"}, WithCache(c), WithArchive(arch))
	ctx := context.Background()

	first, err := s.Render(ctx, Request{FEN: e4FEN, Upscale: 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.CacheHit {
		t.Fatalf("first render should miss")
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one cached entry, got %v", mr.Keys())
	}

	// same position, different counters
	second, err := s.Render(ctx, Request{FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b - - 3 9", Upscale: 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("second render should hit")
	}
	if !bytes.Equal(first.PNG, second.PNG) {
		t.Fatalf("cached bytes differ")
	}

	if len(arch.recs) != 2 {
		t.Fatalf("expected 2 archive records, got %d", len(arch.recs))
	}
	if arch.recs[0].CacheHit || !arch.recs[1].CacheHit || arch.recs[1].Source != "test" {
		t.Fatalf("unexpected records: %+v", arch.recs)
	}
	if arch.recs[0].Bytes != len(first.PNG) {
		t.Fatalf("byte count %d, want %d", arch.recs[0].Bytes, len(first.PNG))
	}
}

func TestRenderSurvivesCacheOutage(t *testing.T) {
	c, mr := newRedisCache(t)
	s := newService(t, Config{}, WithCache(c), WithArchive(&memArchive{err: errors.New("db down")}))
	mr.Close()
	res, err := s.Render(context.Background(), Request{FEN: e4FEN, Upscale: 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.CacheHit || len(res.PNG) == 0 {
		t.Fatalf("unexpected result: hit=%v bytes=%d", res.CacheHit, len(res.PNG))
	}
}

func TestRenderStrictness(t *testing.T) {
	bad := "8/8/8/8/8/8/8/xxxxxxxx"
	yes, no := true, false

	lenient := newService(t, Config{})
	if _, err := lenient.Render(context.Background(), Request{FEN: bad, Upscale: 1}); err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if _, err := lenient.Render(context.Background(), Request{FEN: bad, Upscale: 1, Strict: &yes}); !errors.Is(err, fen.ErrMalformed) {
		t.Fatalf("strict request: expected ErrMalformed, got %v", err)
	}

	strict := newService(t, Config{Strict: true})
	if _, err := strict.Render(context.Background(), Request{FEN: bad, Upscale: 1}); !errors.Is(err, fen.ErrMalformed) {
		t.Fatalf("strict default: expected ErrMalformed, got %v", err)
	}
	if _, err := strict.Render(context.Background(), Request{FEN: bad, Upscale: 1, Strict: &no}); err != nil {
		t.Fatalf("lenient request: %v", err)
	}
}

func TestRenderValidatesInput(t *testing.T) {
	s := newService(t, Config{MaxUpscale: 4})
	ctx := context.Background()
	if _, err := s.Render(ctx, Request{FEN: "", Upscale: 1}); !errors.Is(err, fen.ErrMalformed) {
		t.Fatalf("empty: got %v", err)
	}
	if _, err := s.Render(ctx, Request{FEN: e4FEN, Upscale: 0}); !errors.Is(err, render.ErrUpscale) {
		t.Fatalf("zero upscale: got %v", err)
	}
	if _, err := s.Render(ctx, Request{FEN: e4FEN, Upscale: 5}); !errors.Is(err, ErrUpscaleLimit) {
		t.Fatalf("upscale limit: got %v", err)
	}
	if s.MaxUpscale() != 4 {
		t.Fatalf("MaxUpscale %d", s.MaxUpscale())
	}
}

func TestRenderCanceled(t *testing.T) {
	s := newService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Render(ctx, Request{FEN: e4FEN, Upscale: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRenderConcurrent(t *testing.T) {
	s := newService(t, Config{})
	want, err := s.Render(context.Background(), Request{FEN: e4FEN, Upscale: 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Render(context.Background(), Request{FEN: e4FEN, Upscale: 2})
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(res.PNG, want.PNG) {
				errs <- errors.New("concurrent render differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
