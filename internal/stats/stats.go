package stats

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/atomic"
)

// Stats holds the server's request counters. The zero value is not
// usable; call New.
type Stats struct {
	started time.Time

	total     atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	converted atomic.Int64
	rejected  atomic.Int64 // rate limited
}

func New() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) Request()              { s.total.Inc() }
func (s *Stats) Success()              { s.successes.Inc() }
func (s *Stats) Failure()              { s.failures.Inc() }
func (s *Stats) Rejected()             { s.rejected.Inc() }
func (s *Stats) Converted(n int)       { s.converted.Add(int64(n)) }
func (s *Stats) Uptime() time.Duration { return time.Since(s.started) }

type Snapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	TotalRequests int64  `json:"total_requests"`
	SuccessCount  int64  `json:"success_count"`
	FailureCount  int64  `json:"failure_count"`
	ProxiesServed int64  `json:"proxies_converted"`
	RateLimited   int64  `json:"rate_limited"`
}

func (s *Stats) Snapshot() Snapshot {
	up := s.Uptime()
	return Snapshot{
		Uptime:        up.Round(time.Second).String(),
		UptimeSeconds: int64(up.Seconds()),
		TotalRequests: s.total.Load(),
		SuccessCount:  s.successes.Load(),
		FailureCount:  s.failures.Load(),
		ProxiesServed: s.converted.Load(),
		RateLimited:   s.rejected.Load(),
	}
}

// WritePrometheus writes the counters in the Prometheus text exposition format.
func (s *Stats) WritePrometheus(w io.Writer) error {
	snap := s.Snapshot()
	metrics := []struct {
		name, help, typ string
		value           int64
	}{
		{"vortexconv_uptime_seconds", "Seconds since the server started.", "gauge", snap.UptimeSeconds},
		{"vortexconv_requests_total", "HTTP requests received.", "counter", snap.TotalRequests},
		{"vortexconv_requests_success_total", "Requests answered with a 2xx status.", "counter", snap.SuccessCount},
		{"vortexconv_requests_failure_total", "Requests answered with a 4xx or 5xx status.", "counter", snap.FailureCount},
		{"vortexconv_proxies_converted_total", "Links converted successfully.", "counter", snap.ProxiesServed},
		{"vortexconv_requests_rate_limited_total", "Requests rejected by the rate limiter.", "counter", snap.RateLimited},
	}
	for _, m := range metrics {
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n", m.name, m.help, m.name, m.typ, m.name, m.value); err != nil {
			return err
		}
	}
	return nil
}
