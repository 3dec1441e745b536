package file

import (
	"context"
	"fmt"
	"os"

	"vortexconv/internal/source"
)

// FileSource reads links from a local file, plain or base64.
type FileSource struct{}

func (FileSource) Collect(_ context.Context, params map[string]interface{}) ([]string, error) {
	path, err := source.StringParam(params, "path")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return source.Links(string(data)), nil
}

func init() {
	source.Register("file", func() source.Source { return FileSource{} })
}
