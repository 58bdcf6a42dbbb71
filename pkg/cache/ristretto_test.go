package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)

	if !c.Set("klines:BTCUSDT:1m", []string{"a", "b"}, time.Minute) {
		t.Fatal("set rejected")
	}
	c.(*RistrettoCache).Wait()

	value, found := c.Get("klines:BTCUSDT:1m")
	if !found {
		t.Fatal("expected hit after set")
	}
	if rows, ok := value.([]string); !ok || len(rows) != 2 {
		t.Errorf("unexpected value: %v", value)
	}
}

func TestCacheMiss(t *testing.T) {
	c := newTestCache(t)

	if _, found := c.Get("klines:ETHUSDT:1m"); found {
		t.Error("expected miss for unset key")
	}
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", "v", time.Minute)
	c.(*RistrettoCache).Wait()
	c.Delete("k")
	c.(*RistrettoCache).Wait()

	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("short-lived", 1, 10*time.Millisecond)
	c.(*RistrettoCache).Wait()

	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("short-lived"); found {
		t.Error("expected miss after TTL expiry")
	}
}
