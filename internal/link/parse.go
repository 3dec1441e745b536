package link

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the longest raw link Parse accepts unless overridden.
const DefaultMaxLength = 2000

type options struct {
	maxLength int
}

type Option func(*options)

// WithMaxLength overrides DefaultMaxLength. Values <= 0 keep the default.
func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// Parse routes raw to the parser matching its scheme.
func Parse(raw string, opts ...Option) (*Descriptor, error) {
	o := options{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&o)
	}

	raw = cleanLink(raw)
	if raw == "" {
		return nil, newError(KindInvalidInput, "", nil)
	}
	if utf8.RuneCountInString(raw) > o.maxLength {
		return nil, newError(KindLinkTooLong, "", nil)
	}

	scheme, _, found := strings.Cut(raw, "://")
	if !found {
		return nil, newError(KindUnsupportedProtocol, "", nil)
	}

	switch Type(strings.ToLower(scheme)) {
	case TypeVLESS:
		return ParseVLESS(raw)
	case TypeVMess:
		return ParseVMess(raw)
	case TypeTrojan:
		return ParseTrojan(raw)
	case TypeShadowsocks:
		return ParseShadowsocks(raw)
	default:
		return nil, newError(KindUnsupportedProtocol, "", nil)
	}
}
