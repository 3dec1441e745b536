package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

var ErrTemplateNotFound = errors.New("template not found")

// Loader supplies configuration skeletons by format name.
type Loader interface {
	LoadText(format string) (string, error)
	LoadJSON(format string) (map[string]any, error)
}

// FSLoader reads "<format>.<ext>" files from a filesystem and keeps them
// in memory after the first read.
type FSLoader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]string
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys, cache: make(map[string]string)}
}

// FileName maps a format to its template file.
func FileName(format string) string {
	switch format {
	case "clash":
		return "clash.yaml"
	case "singbox", "xray":
		return format + ".json"
	}
	return format + ".conf"
}

func (l *FSLoader) LoadText(format string) (string, error) {
	name := FileName(format)

	l.mu.Lock()
	defer l.mu.Unlock()
	if content, ok := l.cache[name]; ok {
		return content, nil
	}

	b, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	l.cache[name] = string(b)
	return string(b), nil
}

// LoadJSON decodes the template into a fresh map on every call, so callers
// may mutate the result.
func (l *FSLoader) LoadJSON(format string) (map[string]any, error) {
	text, err := l.LoadText(format)
	if err != nil {
		return nil, err
	}
	return decodeObject([]byte(text))
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode json template: %w", err)
	}
	return m, nil
}
