package http

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortexconv/internal/source"
)

const body = "trojan://pw@example.com:443#A\nss://YWVzLTI1Ni1nY206cHc=@example.com:8388#B\n"

func TestURLSourceDecodesBase64Subscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vortexconv-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(body))))
	}))
	defer srv.Close()

	s, err := source.Get("http")
	require.NoError(t, err)

	links, err := s.Collect(context.Background(), map[string]interface{}{
		"url":        srv.URL,
		"user_agent": "vortexconv-test",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"trojan://pw@example.com:443#A", "ss://YWVzLTI1Ni1nY206cHc=@example.com:8388#B"}, links)
}

func TestURLSourcePlainBodyAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("see " + body))
	}))
	defer srv.Close()

	s := &URLSource{}
	links, err := s.Collect(context.Background(), map[string]interface{}{"url": srv.URL})
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = s.Collect(context.Background(), map[string]interface{}{"url": srv.URL + "/missing"})
	assert.ErrorContains(t, err, "404")

	_, err = s.Collect(context.Background(), map[string]interface{}{})
	assert.ErrorContains(t, err, "missing 'url'")
}
