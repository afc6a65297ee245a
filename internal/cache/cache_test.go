package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration) (*Cache[string], *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl)
	c.now = clk.now
	return c, clk
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", "one", 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set("a", "one", 0)
	c.Set("b", "two", time.Hour)
	c.Set("c", "forever", -1)

	clk.t = clk.t.Add(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "entry with default TTL should have expired")
	_, ok = c.Get("b")
	assert.True(t, ok)

	clk.t = clk.t.Add(24 * 365 * time.Hour)
	_, ok = c.Get("c")
	assert.True(t, ok, "entry with negative TTL never expires")
}

func TestCache_DefaultTTL(t *testing.T) {
	c := New[int](0)
	assert.Equal(t, 10*time.Minute, c.defaultTTL)
}

func TestCache_DeleteExpiredOnWrites(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.Set("old", "x", 0)
	clk.t = clk.t.Add(time.Hour)

	for i := 0; i < purgeEvery; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v", 0)
	}

	_, present := c.items.Load("old")
	assert.False(t, present, "expired entry should be swept after %d writes", purgeEvery)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", "one", 0)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
