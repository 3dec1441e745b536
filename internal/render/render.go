package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"vortexconv/internal/link"
)

// Renderer turns descriptors into one client format. Implementations are
// pure: no I/O and no state shared between calls.
type Renderer interface {
	// Render serializes a single descriptor.
	Render(d *link.Descriptor) (string, error)
	// Aggregate combines rendered fragments into one document body.
	Aggregate(fragments []string) (string, error)
	// ContentType is the MIME type of aggregated output.
	ContentType() string
}

type Factory func() Renderer

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

var ErrUnknownFormat = errors.New("unknown output format")

// UnsupportedError is returned when a target cannot express a protocol.
type UnsupportedError struct {
	Target string
	Type   link.Type
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported protocol for target: %q", e.Target, e.Type)
}

func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

func Get(name string) (Renderer, error) {
	mu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("renderer '%s' not found: %w", name, ErrUnknownFormat)
	}
	return factory(), nil
}

// Formats lists the registered renderer names in sorted order.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders d with the renderer registered as format.
func Render(format string, d *link.Descriptor) (string, error) {
	r, err := Get(format)
	if err != nil {
		return "", err
	}
	return r.Render(d)
}

// JoinLines is the Aggregate of line oriented formats.
func JoinLines(fragments []string) (string, error) {
	return strings.Join(fragments, "\n"), nil
}

// MarshalJSON encodes v as two-space indented JSON without HTML escaping.
func MarshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// JSONArray wraps JSON fragments into one indented array.
func JSONArray(fragments []string) (string, error) {
	items := make([]json.RawMessage, 0, len(fragments))
	for i, f := range fragments {
		if !json.Valid([]byte(f)) {
			return "", fmt.Errorf("fragment %d is not valid json", i)
		}
		items = append(items, json.RawMessage(f))
	}
	return MarshalJSON(items)
}
