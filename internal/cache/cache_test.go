package cache

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/fenpix/internal/fen"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PNGCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c, err := Dial(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), ttl)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func mustParse(t *testing.T, record string) *fen.Position {
	t.Helper()
	p, err := fen.Parse(record)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()
	key := Key("default", mustParse(t, "8/8/8/8/8/8/8/8 w"), 2)

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	want := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := Key("default", mustParse(t, "8/8/8/8/8/8/8/8"), 1)
	if err := c.Set(ctx, key, []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("ttl %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestKey(t *testing.T) {
	a := Key("default", mustParse(t, "8/8/8/8/8/8/8/8 w KQkq - 0 1"), 1)
	b := Key("default", mustParse(t, "8/8/8/8/8/8/8/8 w - - 12 40"), 1)
	if a != b {
		t.Fatalf("move counters should not change the key")
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Fatalf("key %q lacks prefix", a)
	}
	others := []string{
		Key("default", mustParse(t, "8/8/8/8/8/8/8/8 b"), 1),
		Key("default", mustParse(t, "8/8/8/8/8/8/8/8 w"), 2),
		Key("dir-abc", mustParse(t, "8/8/8/8/8/8/8/8 w"), 1),
		Key("default", mustParse(t, "K7/8/8/8/8/8/8/8 w"), 1),
	}
	seen := map[string]bool{a: true}
	for _, k := range others {
		if seen[k] {
			t.Fatalf("key collision: %q", k)
		}
		seen[k] = true
	}
}

func TestDialErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Dial(ctx, "", time.Minute); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := Dial(ctx, "http://localhost", time.Minute); err == nil {
		t.Fatalf("expected error for bad scheme")
	}
}
