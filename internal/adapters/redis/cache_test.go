package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "access_places/internal/adapters/redis"
	"access_places/internal/domain"
)

func newCache(t *testing.T) *redisad.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return c
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	in := domain.Place{ID: "ChIJ-1", Name: "Mint Cafe", PlaceTypes: []string{"cafe"}, OverallRating: 4.5}
	if err := c.Set(ctx, "place:ChIJ-1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.Place
	ok, err := c.Get(ctx, "place:ChIJ-1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != in.Name || out.OverallRating != in.OverallRating {
		t.Fatalf("round-trip mismatch: %+v", out)
	}
}

func TestCache_MissIsNotAnError(t *testing.T) {
	c := newCache(t)

	var out domain.Place
	ok, err := c.Get(context.Background(), "place:absent", &out)
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestCache_DelEvicts(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "places:all", []string{"a", "b"}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Del(ctx, "places:all"); err != nil {
		t.Fatalf("del: %v", err)
	}

	var out []string
	if ok, _ := c.Get(ctx, "places:all", &out); ok {
		t.Fatalf("expected eviction, got %+v", out)
	}
}
