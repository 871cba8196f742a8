package crawler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"HTTPS://Example.COM", "https://example.com/"},
		{"https://example.com/a#section", "https://example.com/a"},
		{" https://example.com/a?b=1 ", "https://example.com/a?b=1"},
		{"https://example.com/Case/Path", "https://example.com/Case/Path"},
		{"not a url", "not a url"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeURL(tc.in), tc.in)
	}
}

func TestMarkIfNotVisitedIsAtomic(t *testing.T) {
	v := NewVisitedSet()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.MarkIfNotVisited("https://a.test/") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, v.Len())
}

func TestVisitedSetGrows(t *testing.T) {
	v := NewVisitedSet()
	for i := 0; i < 10; i++ {
		assert.True(t, v.MarkIfNotVisited(fmt.Sprintf("https://a.test/%d", i)))
	}
	assert.False(t, v.MarkIfNotVisited("https://A.TEST/3#x"))
	assert.Equal(t, 10, v.Len())
}
