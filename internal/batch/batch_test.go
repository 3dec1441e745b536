package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
	_ "vortexconv/internal/render/clash"
	_ "vortexconv/internal/render/surge"
)

const (
	trojanLink = "trojan://pw@example.com:443?sni=sni.example.com#Tro"
	ssLink     = "ss://YWVzLTI1Ni1nY206cHc=@example.com:8388"
)

func TestConvertIsolatesFailuresAndKeepsOrder(t *testing.T) {
	links := []string{trojanLink, "http://example.com", ssLink}

	report, err := Convert(context.Background(), links, "surge", WithWorkers(4))
	require.NoError(t, err)

	require.Len(t, report.Succeeded, 2)
	assert.Equal(t, 1, report.Succeeded[0].Position)
	assert.Equal(t, 3, report.Succeeded[1].Position)
	assert.Equal(t, []string{"Tro-1 [vortexVpn]", "SS Server-3 [vortexVpn]"}, report.Names())

	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Position)
	assert.ErrorIs(t, report.Failed[0].Err, link.ErrUnsupportedProtocol)

	lines := strings.Split(report.Output, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Tro-1 [vortexVpn] = trojan, example.com, 443"))
	assert.True(t, strings.HasPrefix(lines[1], "SS Server-3 [vortexVpn] = ss, example.com, 8388"))
	assert.Equal(t, "text/plain; charset=utf-8", report.ContentType)
}

func TestConvertCustomBrand(t *testing.T) {
	report, err := Convert(context.Background(), []string{trojanLink}, "clash", WithBrand("acme"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Tro-1 [acme]"}, report.Names())
	assert.Contains(t, report.Output, `name: Tro-1 [acme]`)
}

func TestConvertAllFailed(t *testing.T) {
	links := []string{"", "ftp://nope"}

	report, err := Convert(context.Background(), links, "clash")
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Output)

	var allFailed *AllFailedError
	require.True(t, errors.As(err, &allFailed))
	assert.Len(t, allFailed.Failures, 2)
	assert.ErrorIs(t, err, link.ErrInvalidInput)
	assert.ErrorIs(t, err, link.ErrUnsupportedProtocol)

	want := "Link: \nError: link must be a non-empty string\n\n" +
		"Link: ftp://nope\nError: unsupported protocol, supported: vless, vmess, trojan, ss"
	assert.Equal(t, want, allFailed.Summary())
}

func TestConvertRejectsBadRequests(t *testing.T) {
	_, err := Convert(context.Background(), nil, "clash")
	assert.ErrorIs(t, err, ErrNoLinks)

	_, err = Convert(context.Background(), []string{trojanLink, ssLink}, "clash", WithMaxLinks(1))
	assert.ErrorIs(t, err, ErrTooManyLinks)

	_, err = Convert(context.Background(), []string{trojanLink}, "openvpn")
	assert.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestConvertMaxLength(t *testing.T) {
	long := trojanLink + strings.Repeat("x", 100)
	report, err := Convert(context.Background(), []string{trojanLink, long}, "clash", WithMaxLength(80))
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0].Err, link.ErrLinkTooLong)
}

func TestConvertProgressAndDuplicates(t *testing.T) {
	links := []string{trojanLink, ssLink, trojanLink, trojanLink}

	var (
		mu    sync.Mutex
		calls []int
	)
	report, err := Convert(context.Background(), links, "clash",
		WithWorkers(2),
		WithProgress(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 4, total)
			calls = append(calls, done)
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, calls)
	assert.Equal(t, 2, report.Duplicates)
	assert.Len(t, report.Succeeded, 4)
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Convert(ctx, []string{trojanLink, ssLink}, "clash")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "🇩...", Truncate("🇩🇪", 1))
}
