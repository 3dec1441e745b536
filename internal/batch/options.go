package batch

import "vortexconv/internal/link"

const (
	DefaultBrand   = "vortexVpn"
	DefaultWorkers = 8
)

type options struct {
	workers   int
	brand     string
	maxLength int
	maxLinks  int
	progress  func(done, total int)
}

func defaultOptions() options {
	return options{
		workers:   DefaultWorkers,
		brand:     DefaultBrand,
		maxLength: link.DefaultMaxLength,
	}
}

// Option tunes a Convert call.
type Option func(*options)

// WithWorkers bounds the number of links converted concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBrand sets the marker appended to every display name.
func WithBrand(brand string) Option {
	return func(o *options) {
		if brand != "" {
			o.brand = brand
		}
	}
}

func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithMaxLinks rejects batches larger than n. Zero means unlimited.
func WithMaxLinks(n int) Option {
	return func(o *options) { o.maxLinks = n }
}

// WithProgress registers fn to be called after every link, from the worker
// that finished it.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}
