package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"vortexconv/internal/link"
)

// Source yields raw share links from somewhere outside the process.
type Source interface {
	Collect(ctx context.Context, params map[string]interface{}) ([]string, error)
}

type Factory func() Source

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

func Get(name string) (Source, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source plugin '%s' not found", name)
	}
	return factory(), nil
}

func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StringParam reads a required string parameter.
func StringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing '%s' in source params", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("source param '%s' must be a non-empty string", key)
	}
	return s, nil
}

// Links pulls share links out of a subscription body. Bodies without any
// scheme separator are treated as base64 subscriptions.
func Links(body string) []string {
	if !strings.Contains(body, "://") {
		if decoded, err := link.DecodeBase64(strings.Join(strings.Fields(body), "")); err == nil {
			body = decoded
		}
	}
	return link.Extract(body)
}
