package stats

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreConcurrencySafe(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Request()
			s.Success()
			s.Converted(2)
		}()
	}
	wg.Wait()
	s.Failure()
	s.Rejected()

	snap := s.Snapshot()
	assert.Equal(t, int64(50), snap.TotalRequests)
	assert.Equal(t, int64(50), snap.SuccessCount)
	assert.Equal(t, int64(1), snap.FailureCount)
	assert.Equal(t, int64(100), snap.ProxiesServed)
	assert.Equal(t, int64(1), snap.RateLimited)
}

func TestWritePrometheus(t *testing.T) {
	s := New()
	s.Request()

	var sb strings.Builder
	require.NoError(t, s.WritePrometheus(&sb))
	out := sb.String()
	assert.Contains(t, out, "# TYPE vortexconv_requests_total counter\nvortexconv_requests_total 1\n")
	assert.Contains(t, out, "vortexconv_requests_failure_total 0\n")
}
