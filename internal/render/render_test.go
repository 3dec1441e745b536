package render_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
	_ "vortexconv/internal/render/clash"
	_ "vortexconv/internal/render/quantumult"
	_ "vortexconv/internal/render/singbox"
	_ "vortexconv/internal/render/surge"
	_ "vortexconv/internal/render/v2ray"
	_ "vortexconv/internal/render/xray"
)

const (
	realityLink = "vless://11111111-2222-3333-4444-555555555555@example.com:443?security=reality&sni=www.microsoft.com&fp=firefox&pbk=PUBKEY&sid=ab12&flow=xtls-rprx-vision&type=tcp#Reality"
	vlessWSLink = "vless://uuid@example.com:443?security=tls&type=ws&path=%2Fws&host=cdn.example.com&alpn=h2,http/1.1#WS"
	bareWSLink  = "vless://uuid@example.com:80?type=ws#Bare"
	trojanLink  = "trojan://p%40ss@example.com:443?sni=sni.example.com#Tro"
	ssLink      = "ss://YWVzLTI1Ni1nY206cHc=@example.com:8388?plugin=v2ray-plugin%3Btls%3Bhost%3Dcdn.example.com#SS"
	ssObfsLink  = "ss://YWVzLTI1Ni1nY206cHc=@example.com:8388?plugin=obfs-local%3Bobfs%3Dtls%3Bobfs-host%3Da.com#S"
)

func vmessLink(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"v": "2", "ps": "VM", "add": "example.com", "port": "443", "id": "uuid",
		"aid": "0", "net": "grpc", "path": "svc", "tls": "tls",
	})
	require.NoError(t, err)
	return "vmess://" + base64.StdEncoding.EncodeToString(b)
}

func fixtures(t *testing.T) []*link.Descriptor {
	t.Helper()
	raws := []string{realityLink, vlessWSLink, bareWSLink, vmessLink(t), trojanLink, ssLink, ssObfsLink}
	out := make([]*link.Descriptor, 0, len(raws))
	for _, raw := range raws {
		d, err := link.Parse(raw)
		require.NoError(t, err, raw)
		out = append(out, d)
	}
	return out
}

func mustRender(t *testing.T, format, raw string) string {
	t.Helper()
	d, err := link.Parse(raw)
	require.NoError(t, err)
	out, err := render.Render(format, d)
	require.NoError(t, err)
	return out
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"clash", "quantumult", "singbox", "surge", "v2ray", "xray"}, render.Formats())

	r, err := render.Get("CLASH")
	require.NoError(t, err)
	assert.Contains(t, r.ContentType(), "yaml")

	_, err = render.Get("openvpn")
	assert.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestEveryFormatRendersEveryProtocol(t *testing.T) {
	for _, format := range render.Formats() {
		r, err := render.Get(format)
		require.NoError(t, err)
		for _, d := range fixtures(t) {
			first, err := r.Render(d)
			require.NoError(t, err, "%s/%s", format, d.Name)
			assert.NotEmpty(t, first)

			again, err := r.Render(d)
			require.NoError(t, err)
			assert.Equal(t, first, again, "%s output must be deterministic", format)
		}
	}
}

func TestUnsupportedDescriptor(t *testing.T) {
	d := &link.Descriptor{Name: "x", Host: "example.com", Port: 1}
	for _, format := range render.Formats() {
		_, err := render.Render(format, d)
		var unsupported *render.UnsupportedError
		require.True(t, errors.As(err, &unsupported), format)
		assert.Equal(t, format, unsupported.Target)
	}
}

func TestClashKeepsCredentialsAsStrings(t *testing.T) {
	for _, pw := range []string{"2001-01-01", "2001-01-01T10:00:00Z", "yes", "0x1F", "null", "<<"} {
		d := &link.Descriptor{
			Name:  pw,
			Host:  "example.com",
			Port:  443,
			Proto: link.Trojan{Password: pw},
		}
		out, err := render.Render("clash", d)
		require.NoError(t, err)

		var proxies []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &proxies), out)
		require.Len(t, proxies, 1)
		assert.Equal(t, pw, proxies[0]["password"], out)
		assert.Equal(t, pw, proxies[0]["name"], out)
	}
}

func TestClashIsValidYAML(t *testing.T) {
	r, err := render.Get("clash")
	require.NoError(t, err)

	var fragments []string
	for _, d := range fixtures(t) {
		out, err := r.Render(d)
		require.NoError(t, err)
		fragments = append(fragments, out)
	}
	doc, err := r.Aggregate(fragments)
	require.NoError(t, err)

	var proxies []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &proxies))
	require.Len(t, proxies, 7)

	reality := proxies[0]
	assert.Equal(t, "vless", reality["type"])
	assert.Equal(t, 443, reality["port"])
	assert.Equal(t, "firefox", reality["client-fingerprint"])
	assert.Equal(t, map[string]any{"public-key": "PUBKEY", "short-id": "ab12"}, reality["reality-opts"])
	assert.NotContains(t, reality, "fingerprint")

	ws := proxies[1]
	assert.Equal(t, "/ws", ws["ws-path"])
	assert.Equal(t, map[string]any{"host": "cdn.example.com"}, ws["ws-headers"])
	assert.Equal(t, []any{"h2", "http/1.1"}, ws["alpn"])

	bare := proxies[2]
	assert.Equal(t, "/", bare["ws-path"])
	assert.NotContains(t, bare, "ws-headers")
	assert.Equal(t, false, bare["tls"])

	vmess := proxies[3]
	assert.Equal(t, map[string]any{"grpc-service-name": "svc"}, vmess["grpc-opts"])

	trojan := proxies[4]
	assert.Equal(t, "p@ss", trojan["password"])

	ss := proxies[5]
	assert.Equal(t, "v2ray-plugin", ss["plugin"])
	assert.Equal(t, map[string]any{"mode": "websocket", "tls": true, "host": "cdn.example.com"}, ss["plugin-opts"])

	obfs := proxies[6]
	assert.Equal(t, "obfs", obfs["plugin"])
	assert.Equal(t, map[string]any{"mode": "tls", "host": "a.com"}, obfs["plugin-opts"])
}

func TestSurgeLines(t *testing.T) {
	assert.Equal(t,
		"Tro = trojan, example.com, 443, password=p@ss, skip-cert-verify=false, sni=sni.example.com",
		mustRender(t, "surge", trojanLink))

	assert.Equal(t,
		"S = ss, example.com, 8388, encrypt-method=aes-256-gcm, password=pw, obfs=tls, obfs-host=a.com, udp-relay=true",
		mustRender(t, "surge", ssObfsLink))

	ws := mustRender(t, "surge", vlessWSLink)
	assert.Contains(t, ws, "alpn=h2,http/1.1")
	assert.Contains(t, ws, "ws-headers=host:cdn.example.com")
}

func TestQuantumultLines(t *testing.T) {
	assert.Equal(t,
		"shadowsocks=example.com:8388, method=aes-256-gcm, password=pw, obfs=tls, obfs-host=a.com, tag=S",
		mustRender(t, "quantumult", ssObfsLink))

	ss := mustRender(t, "quantumult", ssLink)
	assert.Contains(t, ss, "obfs=wss, obfs-host=cdn.example.com")

	reality := mustRender(t, "quantumult", realityLink)
	assert.True(t, strings.HasPrefix(reality, "vmess=example.com:443, method=none, password=11111111-"))
	assert.Contains(t, reality, "reality-base64-pubkey=PUBKEY")
	assert.Contains(t, reality, "vless-flow=xtls-rprx-vision")
	assert.True(t, strings.HasSuffix(reality, "tag=Reality"))
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestSingboxOutbounds(t *testing.T) {
	bare := decodeJSON(t, mustRender(t, "singbox", bareWSLink))
	assert.Equal(t, map[string]any{"type": "ws", "path": "/", "headers": map[string]any{}}, bare["transport"])
	assert.NotContains(t, bare, "tls")

	ws := decodeJSON(t, mustRender(t, "singbox", vlessWSLink))
	transport := ws["transport"].(map[string]any)
	assert.Equal(t, map[string]any{"host": "cdn.example.com"}, transport["headers"])
	tls := ws["tls"].(map[string]any)
	assert.Equal(t, []any{"h2", "http/1.1"}, tls["alpn"])
	assert.Equal(t, "chrome", tls["utls"].(map[string]any)["fingerprint"])

	reality := decodeJSON(t, mustRender(t, "singbox", realityLink))
	assert.Equal(t, "xtls-rprx-vision", reality["flow"])
	rtls := reality["tls"].(map[string]any)
	assert.Equal(t, "www.microsoft.com", rtls["server_name"])
	assert.Equal(t, map[string]any{"enabled": true, "public_key": "PUBKEY", "short_id": "ab12"}, rtls["reality"])

	ss := decodeJSON(t, mustRender(t, "singbox", ssLink))
	assert.Equal(t, "shadowsocks", ss["type"])
	assert.Equal(t, "v2ray-plugin", ss["plugin"])
	assert.Equal(t, "tls;host=cdn.example.com", ss["plugin_opts"])

	obfs := decodeJSON(t, mustRender(t, "singbox", ssObfsLink))
	assert.Equal(t, "obfs-local", obfs["plugin"])
	assert.Equal(t, "obfs=tls;obfs-host=a.com", obfs["plugin_opts"])
}

func TestSingboxAggregate(t *testing.T) {
	r, err := render.Get("singbox")
	require.NoError(t, err)
	a, err := r.Render(fixtures(t)[0])
	require.NoError(t, err)
	doc, err := r.Aggregate([]string{a, a})
	require.NoError(t, err)

	var arr []map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &arr))
	assert.Len(t, arr, 2)
}

func TestXrayOutbound(t *testing.T) {
	out := mustRender(t, "xray", realityLink)
	assert.NotContains(t, out, "null")

	ob := decodeJSON(t, out)
	assert.Equal(t, "vless", ob["protocol"])
	assert.Equal(t, "Reality", ob["tag"])

	stream := ob["streamSettings"].(map[string]any)
	assert.Equal(t, "reality", stream["security"])
	assert.Equal(t, "tcp", stream["network"])
	rs := stream["realitySettings"].(map[string]any)
	assert.Equal(t, "PUBKEY", rs["publicKey"])
	assert.Equal(t, "ab12", rs["shortId"])
	assert.Equal(t, "firefox", rs["fingerprint"])
	assert.NotContains(t, stream, "tlsSettings")

	ws := decodeJSON(t, mustRender(t, "xray", vlessWSLink))
	wsStream := ws["streamSettings"].(map[string]any)
	assert.Equal(t, map[string]any{"host": "cdn.example.com", "path": "/ws"}, wsStream["wsSettings"])
	assert.Equal(t, []any{"h2", "http/1.1"}, wsStream["tlsSettings"].(map[string]any)["alpn"])

	r, err := render.Get("xray")
	require.NoError(t, err)
	doc, err := r.Aggregate([]string{out})
	require.NoError(t, err)
	assert.Len(t, decodeJSON(t, doc)["outbounds"], 1)
}

func TestV2raySubscriptionRoundTrip(t *testing.T) {
	r, err := render.Get("v2ray")
	require.NoError(t, err)

	var fragments []string
	ds := fixtures(t)
	for _, d := range ds {
		out, err := r.Render(d)
		require.NoError(t, err)
		fragments = append(fragments, out)
	}
	body, err := r.Aggregate(fragments)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(body)
	require.NoError(t, err)
	lines := link.Extract(string(decoded))
	require.Len(t, lines, len(ds))
	for i, raw := range lines {
		back, err := link.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, ds[i].Hash(), back.Hash(), raw)
	}
}
