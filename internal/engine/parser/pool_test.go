// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserPool_Leases(t *testing.T) {
	pool := NewParserPool(Python())

	sp := pool.Get()
	require.NotNil(t, sp)
	stats := pool.Stats()
	assert.Equal(t, 1, stats.Leased)
	assert.Equal(t, uint64(1), stats.Leases)

	pool.Put(sp)
	pool.Put(nil)
	stats = pool.Stats()
	assert.Zero(t, stats.Leased)
	assert.Zero(t, stats.Oldest)
	assert.Equal(t, uint64(1), stats.Leases)
}

func TestParserPool_ParsesFragment(t *testing.T) {
	pool := NewParserPool(Python())
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("a = 1\nprint(a)\n"), nil)
	require.NotNil(t, tree)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(Python())
	src := []byte("def run(x):\n    return x\n")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				sp := pool.Get()
				if tree := sp.Parse(src, nil); assert.NotNil(t, tree) {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()

	stats := pool.Stats()
	assert.Zero(t, stats.Leased)
	assert.Equal(t, uint64(1000), stats.Leases)
}
