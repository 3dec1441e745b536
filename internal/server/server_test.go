package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortexconv/internal/config"
	"vortexconv/internal/db"
	"vortexconv/internal/history"
	_ "vortexconv/internal/render/clash"
	_ "vortexconv/internal/render/quantumult"
	_ "vortexconv/internal/render/singbox"
	_ "vortexconv/internal/render/surge"
	_ "vortexconv/internal/render/v2ray"
	_ "vortexconv/internal/render/xray"
	"vortexconv/internal/template"
)

const (
	trojanLink = "trojan://pw@example.com:443#Tro"
	vlessLink  = "vless://11111111-2222-3333-4444-555555555555@example.com:443?security=tls&type=ws&path=%2Fws&host=cdn.example.com#WS"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	msgs chan string
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) error {
	n.msgs <- msg
	return nil
}

func newServer(t *testing.T, mutate func(*config.Config), opts ...Option) *Server {
	t.Helper()
	cfg := *config.Default()
	cfg.Server.RateLimit.RPS = 0
	cfg.Probe.Timeout = time.Second
	cfg.Probe.Retries = 0
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]Option{WithMerger(template.NewMerger(template.NewFSLoader(os.DirFS("../../templates"))))}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestConvertGetWithTemplate(t *testing.T) {
	s := newServer(t, nil)
	w := do(s, http.MethodGet, "/convert/clash?link="+url.QueryEscape(trojanLink+", ,"+vlessLink), "", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/yaml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Proxies-Processed"))
	assert.Empty(t, w.Header().Get("X-Proxies-Failed"))
	body := w.Body.String()
	assert.Contains(t, body, "mixed-port: 7890")
	assert.Contains(t, body, "Tro-1 [vortexVpn]")
	assert.Contains(t, body, "WS-2 [vortexVpn]")
	assert.NotContains(t, body, "PLACEHOLDER")
}

func TestConvertWithoutTemplate(t *testing.T) {
	s := newServer(t, nil)
	w := do(s, http.MethodGet, "/convert/surge?template=false&link="+url.QueryEscape(trojanLink), "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Tro-1 [vortexVpn] = trojan, example.com, 443"), w.Body.String())
}

func TestConvertPostJSONPartialFailure(t *testing.T) {
	s := newServer(t, nil)
	body := `{"links": ["` + trojanLink + `", "http://nope", "  "]}`
	w := do(s, http.MethodPost, "/convert/singbox", "application/json", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Proxies-Processed"))
	assert.Equal(t, "1", w.Header().Get("X-Proxies-Failed"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc["outbounds"])
}

func TestConvertPostText(t *testing.T) {
	s := newServer(t, nil)
	w := do(s, http.MethodPost, "/convert/v2ray", "text/plain", "here you go:\n"+trojanLink+"\nand "+vlessLink+".\n")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("X-Proxies-Processed"))
}

func TestConvertErrors(t *testing.T) {
	s := newServer(t, nil)

	w := do(s, http.MethodGet, "/convert/word?link="+url.QueryEscape(trojanLink), "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "clash")

	w = do(s, http.MethodGet, "/convert/clash", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/convert/clash", "application/json", `{"links": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodGet, "/convert/clash?link="+url.QueryEscape("http://a,vless://@x:1"), "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "All links failed to convert:\n\nLink: http://a\nError: "), w.Body.String())
}

func TestConvertTemplateError(t *testing.T) {
	cfg := *config.Default()
	cfg.Server.RateLimit.RPS = 0
	s, err := New(cfg, WithMerger(template.NewMerger(template.NewFSLoader(os.DirFS(t.TempDir())))))
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/convert/surge?link="+url.QueryEscape(trojanLink), "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBodyLimit(t *testing.T) {
	s := newServer(t, func(c *config.Config) { c.Server.MaxBodyBytes = 16 })
	w := do(s, http.MethodPost, "/convert/clash", "text/plain", strings.Repeat(trojanLink+"\n", 4))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHistoryRecording(t *testing.T) {
	database, err := db.Connect(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { db.Close(database) })
	rec := history.NewRecorder(database)

	s := newServer(t, nil, WithHistory(rec))
	w := do(s, http.MethodGet, "/convert/clash?link="+url.QueryEscape(trojanLink+",http://a"), "", "")
	require.Equal(t, http.StatusOK, w.Code)

	runs, err := rec.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "http", runs[0].Source)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestHealth(t *testing.T) {
	notifier := &recordingNotifier{msgs: make(chan string, 1)}
	s := newServer(t, nil, WithNotifier(notifier))

	w := do(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(s, http.MethodGet, "/health?proxy=nohost", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	w = do(s, http.MethodGet, "/health?proxy="+l.Addr().String(), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var up map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.Equal(t, "UP", up["status"])
	assert.Equal(t, true, up["tcp"].(map[string]any)["success"])
	assert.NotContains(t, up, "geo")

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := closed.Addr().String()
	closed.Close()

	w = do(s, http.MethodGet, "/health?proxy="+addr, "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"DOWN"`)

	select {
	case msg := <-notifier.msgs:
		assert.Contains(t, msg, addr)
	case <-time.After(2 * time.Second):
		t.Fatal("no alert for DOWN proxy")
	}
}

func TestStatsMetricsPing(t *testing.T) {
	s := newServer(t, nil)
	do(s, http.MethodGet, "/convert/clash?link="+url.QueryEscape(trojanLink), "", "")
	do(s, http.MethodGet, "/convert/clash", "", "")

	w := do(s, http.MethodGet, "/ping", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Alive"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = do(s, http.MethodGet, "/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.EqualValues(t, 4, snap["total_requests"])
	assert.EqualValues(t, 2, snap["success_count"])
	assert.EqualValues(t, 1, snap["failure_count"])
	assert.EqualValues(t, 1, snap["proxies_converted"])
	assert.Contains(t, snap, "uptime")

	w = do(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vortexconv_requests_total 5")
}

func TestRequestIDPassthrough(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, func(c *config.Config) {
		c.Server.RateLimit.RPS = 0.001
		c.Server.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/ping", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(s, http.MethodGet, "/ping", "", "").Code)
	assert.EqualValues(t, 1, s.Stats().Snapshot().RateLimited)
}
