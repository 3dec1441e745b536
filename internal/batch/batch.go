package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"vortexconv/internal/link"
	"vortexconv/internal/logger"
	"vortexconv/internal/render"
)

var (
	ErrNoLinks      = errors.New("no links to convert")
	ErrTooManyLinks = errors.New("too many links in one batch")
)

// Success is one converted link.
type Success struct {
	Position   int // 1-based
	Link       string
	Descriptor *link.Descriptor // carries the injected name
	Output     string
}

// Failure is one link that could not be parsed or rendered.
type Failure struct {
	Position int
	Link     string
	Err      error
}

type Report struct {
	Format      string
	ContentType string
	Succeeded   []Success
	Failed      []Failure
	// Output is the renderer aggregate of all successful fragments.
	Output string
	// Duplicates counts successes pointing at an endpoint already seen
	// earlier in the batch.
	Duplicates int
}

// Names returns the display names of the successes in input order.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Succeeded))
	for _, s := range r.Succeeded {
		names = append(names, s.Descriptor.Name)
	}
	return names
}

// Fragments returns the rendered successes in input order.
func (r *Report) Fragments() []string {
	out := make([]string, 0, len(r.Succeeded))
	for _, s := range r.Succeeded {
		out = append(out, s.Output)
	}
	return out
}

// AllFailedError is returned when no link in the batch converted.
type AllFailedError struct {
	Failures []Failure
	err      error
}

func newAllFailedError(failures []Failure) *AllFailedError {
	var combined error
	for _, f := range failures {
		combined = multierr.Append(combined, f.Err)
	}
	return &AllFailedError{Failures: failures, err: combined}
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all %d links failed to convert", len(e.Failures))
}

func (e *AllFailedError) Unwrap() error { return e.err }

// Summary lists each failure as "Link: <link>\nError: <msg>", separated by
// blank lines.
func (e *AllFailedError) Summary() string {
	entries := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		entries = append(entries, fmt.Sprintf("Link: %s\nError: %v", Truncate(f.Link, 50), f.Err))
	}
	return strings.Join(entries, "\n\n")
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// DisplayName builds the unique per-batch name "<name>-<position> [<brand>]".
func DisplayName(name string, position int, brand string) string {
	return fmt.Sprintf("%s-%d [%s]", name, position, brand)
}

type result struct {
	success *Success
	failure *Failure
}

// Convert parses and renders every link into format. A failing link never
// affects its siblings; the batch as a whole fails only when nothing
// converted, with an *AllFailedError.
func Convert(ctx context.Context, links []string, format string, opts ...Option) (*Report, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	if o.maxLinks > 0 && len(links) > o.maxLinks {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyLinks, len(links), o.maxLinks)
	}

	r, err := render.Get(format)
	if err != nil {
		return nil, err
	}

	results := make([]result, len(links))
	total := len(links)
	var (
		mu   sync.Mutex
		done int
	)
	finish := func() {
		if o.progress == nil {
			return
		}
		mu.Lock()
		done++
		o.progress(done, total)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for i, raw := range links {
		i, raw := i, raw
		if ctx.Err() != nil {
			results[i] = result{failure: &Failure{Position: i + 1, Link: raw, Err: ctx.Err()}}
			finish()
			continue
		}
		g.Go(func() error {
			defer finish()
			if err := ctx.Err(); err != nil {
				results[i] = result{failure: &Failure{Position: i + 1, Link: raw, Err: err}}
				return nil
			}
			results[i] = convertOne(r, raw, i+1, o)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Format: strings.ToLower(format), ContentType: r.ContentType()}
	seen := make(map[string]struct{})
	for _, res := range results {
		if res.failure != nil {
			report.Failed = append(report.Failed, *res.failure)
			continue
		}
		hash := res.success.Descriptor.Hash()
		if _, dup := seen[hash]; dup {
			report.Duplicates++
		}
		seen[hash] = struct{}{}
		report.Succeeded = append(report.Succeeded, *res.success)
	}

	for _, f := range report.Failed {
		logger.Log.Debugf("Link %d failed (%s): %v", f.Position, Truncate(f.Link, 50), f.Err)
	}

	if len(report.Succeeded) == 0 {
		return report, newAllFailedError(report.Failed)
	}

	report.Output, err = r.Aggregate(report.Fragments())
	if err != nil {
		return report, fmt.Errorf("aggregate %s: %w", format, err)
	}
	return report, nil
}

func convertOne(r render.Renderer, raw string, position int, o options) result {
	fail := func(err error) result {
		return result{failure: &Failure{Position: position, Link: raw, Err: err}}
	}

	d, err := link.Parse(raw, link.WithMaxLength(o.maxLength))
	if err != nil {
		return fail(err)
	}
	d = d.WithName(DisplayName(d.Name, position, o.brand))
	if d.Network == "" {
		d.Network = "tcp"
	}

	out, err := r.Render(d)
	if err != nil {
		return fail(err)
	}
	return result{success: &Success{Position: position, Link: raw, Descriptor: d, Output: out}}
}
