package collection

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap_GetOrPut(t *testing.T) {
	aMap := NewSyncMap[string, int]()
	var created int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value := aMap.GetOrPut("key", func() int {
				atomic.AddInt32(&created, 1)
				return 42
			})
			assert.Equal(t, 42, value)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&created))
}

func TestSyncMap_Basics(t *testing.T) {
	aMap := NewSyncMap[string, string]()
	aMap.Put("a", "1")
	value, ok := aMap.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	aMap.Delete("a")
	_, ok = aMap.Get("a")
	assert.False(t, ok)

	aMap.Put("b", "2")
	aMap.Put("c", "3")
	seen := map[string]string{}
	aMap.Range(func(key, value string) bool {
		seen[key] = value
		return true
	})
	assert.Equal(t, map[string]string{"b": "2", "c": "3"}, seen)
}
