package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortexconv/internal/source"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte("trojan://pw@example.com:443#A\r\ntrojan://pw@example.com:443#A\n"), 0o644))

	s, err := source.Get("file")
	require.NoError(t, err)

	links, err := s.Collect(context.Background(), map[string]interface{}{"path": path})
	require.NoError(t, err)
	assert.Equal(t, []string{"trojan://pw@example.com:443#A"}, links)

	_, err = s.Collect(context.Background(), map[string]interface{}{"path": filepath.Join(t.TempDir(), "none")})
	assert.Error(t, err)

	_, err = source.Get("ftp")
	assert.Error(t, err)
}
