package alert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vortexconv/internal/probe"
)

// Notifier delivers an operator alert.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

type nop struct{}

func (nop) Notify(context.Context, string) error { return nil }

// Nop discards every alert.
var Nop Notifier = nop{}

// Writer prints alerts to an io.Writer, framed so they stand out in
// terminal output.
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{Out: out}
}

func (w *Writer) Notify(_ context.Context, msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.Out, "========== ALERT ==========\n%s\n===========================\n", msg)
	return err
}

// DownMessage formats the alert sent when a probe reports DOWN.
func DownMessage(res *probe.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔴 Proxy DOWN: %s\n", res.Proxy)
	if res.TCP.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", res.TCP.Error)
	}
	sb.WriteString("Time: " + res.Timestamp.Format(time.RFC3339))
	return sb.String()
}

// Async sends msg in the background with its own timeout so callers on a
// request path never wait on delivery. Failures are handed to onErr.
func Async(n Notifier, msg string, timeout time.Duration, onErr func(error)) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := n.Notify(ctx, msg); err != nil && onErr != nil {
			onErr(err)
		}
	}()
}
