package metrics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"vortexconv/internal/link"
)

const timeoutCategory = "Timeout (Slow)"

// Collector aggregates probe outcomes and turns them into tuning advice
// for probe.timeout and probe.retries.
type Collector struct {
	mu sync.Mutex

	latencies []time.Duration

	successByAttempt map[int]int
	totalSuccess     int

	errorCounts   map[string]int
	totalErrors   int
	timeoutErrors int
}

func New() *Collector {
	return &Collector{
		successByAttempt: make(map[int]int),
		errorCounts:      make(map[string]int),
	}
}

// RecordSuccess records a probe that succeeded on the given 0-based attempt.
func (c *Collector) RecordSuccess(attempt int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, duration)
	c.successByAttempt[attempt]++
	c.totalSuccess++
}

func (c *Collector) RecordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalErrors++
	category := Categorize(err)
	if category == timeoutCategory {
		c.timeoutErrors++
	}
	c.errorCounts[category]++
}

// Categorize buckets an error for the report. Parse errors keep their kind.
func Categorize(err error) string {
	if kind := link.KindOf(err); kind != "" {
		return "Parse: " + string(kind)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutCategory
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return timeoutCategory
	case strings.Contains(msg, "refused"):
		return "Conn Refused (Fast)"
	case strings.Contains(msg, "reset"):
		return "Conn Reset (Fast)"
	case strings.Contains(msg, "EOF"):
		return "EOF / Empty"
	case strings.Contains(msg, "no such host"):
		return "DNS Error"
	}
	return "Unknown"
}

type Summary struct {
	Successes int
	Failures  int
	Timeouts  int
	P50       time.Duration
	P90       time.Duration
	Average   time.Duration
	Errors    map[string]int
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Successes: c.totalSuccess,
		Failures:  c.totalErrors,
		Timeouts:  c.timeoutErrors,
		Errors:    make(map[string]int, len(c.errorCounts)),
	}
	for k, v := range c.errorCounts {
		s.Errors[k] = v
	}
	if len(c.latencies) > 0 {
		sorted := append([]time.Duration(nil), c.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		s.P50 = sorted[len(sorted)/2]
		s.P90 = sorted[int(float64(len(sorted))*0.9)]
		s.Average = average(sorted)
	}
	return s
}

// RecommendedRetries is the smallest retry count that would have caught
// 98% of the successes seen so far.
func (c *Collector) RecommendedRetries(currentRetries int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.totalSuccess == 0 {
		return currentRetries
	}
	accumulated := 0.0
	for i := 0; i <= currentRetries; i++ {
		accumulated += float64(c.successByAttempt[i]) / float64(c.totalSuccess)
		if accumulated > 0.98 {
			return i
		}
	}
	return currentRetries
}

func (c *Collector) PrintReport(out io.Writer, currentTimeout time.Duration, currentRetries int) {
	s := c.Summary()
	recRetries := c.RecommendedRetries(currentRetries)

	c.mu.Lock()
	byAttempt := make(map[int]int, len(c.successByAttempt))
	for k, v := range c.successByAttempt {
		byAttempt[k] = v
	}
	c.mu.Unlock()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "\n📊 \033[1mPROBE METRICS REPORT\033[0m")
	fmt.Fprintln(out, "────────────────────────────────────────")

	if s.Successes > 0 {
		fmt.Fprintln(w, "\033[1;36m[ LATENCY (Reachable Targets) ]\033[0m")
		fmt.Fprintf(w, "  Avg Duration:\t%v\n", s.Average)
		fmt.Fprintf(w, "  p50 (Median):\t%v\n", s.P50)
		fmt.Fprintf(w, "  p90 (Slowest 10%%):\t%v\n", s.P90)
		recTimeout := s.P90 + 500*time.Millisecond
		fmt.Fprintf(w, "  💡 Recommendation:\tSet 'probe.timeout' to ~%s (Current: %s)\n", recTimeout.Round(time.Second), currentTimeout)
		fmt.Fprintln(w, "")
	}

	fmt.Fprintln(w, "\033[1;36m[ RETRY EFFICIENCY ]\033[0m")
	if s.Successes > 0 {
		fmt.Fprintf(w, "  Reachable:\t%d\n", s.Successes)
		for i := 0; i <= currentRetries; i++ {
			count := byAttempt[i]
			pct := float64(count) / float64(s.Successes) * 100
			fmt.Fprintf(w, "  Succeeded on Try %d:\t%d (%.1f%%)\n", i+1, count, pct)
		}
		fmt.Fprintf(w, "  💡 Recommendation:\tSet 'probe.retries' to %d (Current: %d)\n", recRetries, currentRetries)
	} else {
		fmt.Fprintln(w, "  No reachable targets to analyze.")
	}
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "\033[1;36m[ NETWORK HEALTH / ERRORS ]\033[0m")
	fmt.Fprintf(w, "  Total Failures:\t%d\n", s.Failures)
	if s.Failures > 0 {
		timeoutPct := float64(s.Timeouts) / float64(s.Failures) * 100
		fmt.Fprintf(w, "  Timeouts:\t%d (%.1f%%)\n", s.Timeouts, timeoutPct)

		categories := make([]string, 0, len(s.Errors))
		for k := range s.Errors {
			if k != timeoutCategory {
				categories = append(categories, k)
			}
		}
		sort.Strings(categories)
		for _, k := range categories {
			fmt.Fprintf(w, "  %s:\t%d\n", k, s.Errors[k])
		}

		fmt.Fprintln(w, "  --------------------------------")
		if timeoutPct > 70 {
			fmt.Fprintln(w, "  ⚠️  \033[1;31mHIGH SATURATION DETECTED\033[0m")
			fmt.Fprintln(w, "  >70% of failures are timeouts; the local link or upstream proxy is dropping packets.")
			fmt.Fprintln(w, "  💡 Recommendation: \033[1mprobe fewer targets at once or raise probe.timeout\033[0m")
		} else {
			fmt.Fprintln(w, "  ✅ Failures are mostly active rejections.")
		}
	}

	w.Flush()
	fmt.Fprintln(out, "")
}

func average(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return time.Duration(int64(sum) / int64(len(d)))
}
