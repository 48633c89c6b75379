package pricecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTLCache_FreshWithinTTL(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	calls := 0
	prices := []float64{150, 160}
	c := New(func(context.Context) (float64, error) {
		p := prices[calls]
		calls++
		return p, nil
	}, 30*time.Second, WithClock(clk.Now))

	v, fresh := c.Get(context.Background())
	assert.True(t, fresh)
	assert.Equal(t, 150.0, v)

	clk.Advance(29 * time.Second)
	v, _ = c.Get(context.Background())
	assert.Equal(t, 150.0, v)
	assert.Equal(t, 1, calls)

	clk.Advance(2 * time.Second)
	v, fresh = c.Get(context.Background())
	assert.True(t, fresh)
	assert.Equal(t, 160.0, v)
	assert.Equal(t, 2, calls)
}

func TestTTLCache_FetchFailure(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	fail := false
	c := New(func(context.Context) (float64, error) {
		if fail {
			return 0, errors.New("upstream down")
		}
		return 150, nil
	}, time.Second, WithClock(clk.Now))

	v, fresh := c.Get(context.Background())
	assert.True(t, fresh)
	assert.Equal(t, 150.0, v)

	fail = true
	clk.Advance(2 * time.Second)
	v, fresh = c.Get(context.Background())
	assert.False(t, fresh)
	assert.Equal(t, 150.0, v, "stale value is still returned")

	empty := New(func(context.Context) (float64, error) { return 0, errors.New("down") }, 0)
	v, fresh = empty.Get(context.Background())
	assert.False(t, fresh)
	assert.Zero(t, v)
}

func TestTTLCache_ConcurrentGet(t *testing.T) {
	c := New(func(context.Context) (float64, error) { return 150, nil }, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, fresh := c.Get(context.Background())
			assert.True(t, fresh)
			assert.Equal(t, 150.0, v)
		}()
	}
	wg.Wait()
}

func TestStatic(t *testing.T) {
	v, fresh := Static(140).Get(context.Background())
	assert.True(t, fresh)
	assert.Equal(t, 140.0, v)

	_, fresh = Static(0).Get(context.Background())
	assert.False(t, fresh)
}
