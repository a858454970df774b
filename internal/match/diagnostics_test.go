package match

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosticsConcurrentMissingKeys(t *testing.T) {
	diag := NewDiagnostics()
	var first atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if diag.MissingKey(fmt.Sprintf("ssj%04d", i%5)) {
				first.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), first.Load(), "each key is new exactly once")
	assert.Equal(t, []string{"ssj0000", "ssj0001", "ssj0002", "ssj0003", "ssj0004"}, diag.MissingKeys())
}
