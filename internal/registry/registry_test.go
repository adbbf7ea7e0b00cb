package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestRegistry(cfg Config) (*Registry[string], *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New[string](cfg)
	r.now = c.now
	return r, c
}

func TestPutGet(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	r.Put("a", "alpha")

	v, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", v)

	_, err = r.Get("b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvictsOldest(t *testing.T) {
	r, c := newTestRegistry(Config{MaxEntries: 2})
	r.Put("a", "1")
	c.t = c.t.Add(time.Second)
	r.Put("b", "2")
	c.t = c.t.Add(time.Second)
	r.Put("c", "3")

	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, r.Len())
}

func TestReplaceMovesToBack(t *testing.T) {
	r, _ := newTestRegistry(Config{MaxEntries: 2})
	r.Put("a", "1")
	r.Put("b", "2")
	r.Put("a", "1b")
	r.Put("c", "3")

	v, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1b", v)
	_, err = r.Get("b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	r, c := newTestRegistry(Config{TTL: time.Minute})
	r.Put("a", "1")
	c.t = c.t.Add(30 * time.Second)
	r.Put("b", "2")

	c.t = c.t.Add(45 * time.Second)
	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get("b")
	assert.NoError(t, err)

	assert.Equal(t, 1, r.Prune())
	assert.Equal(t, 1, r.Len())
}

func TestDelete(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	r.Put("a", "1")
	assert.True(t, r.Delete("a"))
	assert.False(t, r.Delete("a"))
	assert.Equal(t, 0, r.Len())
}

func TestConcurrentAccess(t *testing.T) {
	r := New[int](Config{MaxEntries: 50})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := range 100 {
				id := fmt.Sprintf("%d-%d", w, j)
				r.Put(id, j)
				_, _ = r.Get(id)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 50)
}
