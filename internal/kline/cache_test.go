package kline

import (
	"testing"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := New(300*time.Second, 100)
	bars := []domain.KlineBar{{Date: "2026-01-01", Close: 10}}
	c.Put("600000", 50, bars)

	got, ok := c.Get("600000", 50)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 1 || got[0].Close != 10 {
		t.Errorf("got %v, want %v", got, bars)
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	c := New(1*time.Millisecond, 100)
	c.Put("600000", 50, []domain.KlineBar{{Date: "2026-01-01"}})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("600000", 50); ok {
		t.Errorf("expected cache miss after TTL expiry")
	}
}

func TestCacheMissUnknownKey(t *testing.T) {
	c := New(300*time.Second, 100)
	if _, ok := c.Get("000001", 50); ok {
		t.Errorf("expected miss for unseeded key")
	}
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	c := New(300*time.Second, 2)
	c.Put("A", 10, []domain.KlineBar{{Date: "a"}})
	time.Sleep(2 * time.Millisecond)
	c.Put("B", 10, []domain.KlineBar{{Date: "b"}})
	time.Sleep(2 * time.Millisecond)
	c.Put("C", 10, []domain.KlineBar{{Date: "c"}})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get("A", 10); ok {
		t.Errorf("expected oldest entry A to be evicted")
	}
	if _, ok := c.Get("C", 10); !ok {
		t.Errorf("expected newest entry C to remain")
	}
}

func TestCacheDistinguishesLimitsOnSameSymbol(t *testing.T) {
	c := New(300*time.Second, 100)
	c.Put("600000", 30, []domain.KlineBar{{Date: "short"}})
	c.Put("600000", 90, []domain.KlineBar{{Date: "long"}})

	short, _ := c.Get("600000", 30)
	long, _ := c.Get("600000", 90)
	if short[0].Date != "short" || long[0].Date != "long" {
		t.Errorf("limit-keyed entries collided: short=%v long=%v", short, long)
	}
}
