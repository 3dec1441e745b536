package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vortexconv/internal/logger"
	"vortexconv/internal/source"
)

// maxBody caps subscription downloads.
const maxBody = 16 << 20

type URLSource struct {
	Client *http.Client
}

func (s *URLSource) Collect(ctx context.Context, params map[string]interface{}) ([]string, error) {
	targetURL, err := source.StringParam(params, "url")
	if err != nil {
		return nil, err
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	if proxyVal, ok := params["_proxy_url"]; ok {
		if proxyStr, ok := proxyVal.(string); ok && proxyStr != "" {
			pURL, err := url.Parse(proxyStr)
			if err == nil {
				client = &http.Client{
					Timeout:   client.Timeout,
					Transport: &http.Transport{Proxy: http.ProxyURL(pURL)},
				}
				logger.Log.Debugf("HTTP source using proxy: %s", proxyStr)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if ua, ok := params["user_agent"].(string); ok && ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	logger.Log.Debugf("Fetching URL: %s", targetURL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return source.Links(string(body)), nil
}

func init() {
	source.Register("http", func() source.Source {
		return &URLSource{}
	})
}
