package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vortexconv/internal/alert"
	"vortexconv/internal/batch"
	"vortexconv/internal/link"
	"vortexconv/internal/logger"
	"vortexconv/internal/render"
)

const alertTimeout = 30 * time.Second

var errBodyTooLarge = errors.New("request body too large")

type convertRequest struct {
	Links []string `json:"links"`
}

func (s *Server) handleConvert(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	if _, err := render.Get(format); err != nil {
		c.String(http.StatusBadRequest, "Error: unsupported format %q. Use one of: %s", format, strings.Join(render.Formats(), ", "))
		return
	}

	links, err := s.requestLinks(c)
	if errors.Is(err, errBodyTooLarge) {
		c.String(http.StatusRequestEntityTooLarge, "Error: %v", err)
		return
	}
	if err != nil {
		c.String(http.StatusBadRequest, "Error: %v", err)
		return
	}
	if len(links) == 0 {
		c.String(http.StatusBadRequest, "Error: no links provided. Use ?link=a,b or POST {\"links\": [...]}")
		return
	}

	conv := s.cfg.Converter
	report, err := batch.Convert(c.Request.Context(), links, format,
		batch.WithWorkers(conv.Workers),
		batch.WithBrand(conv.Brand),
		batch.WithMaxLength(conv.MaxLinkLength),
		batch.WithMaxLinks(conv.MaxLinks),
	)
	if report != nil {
		if _, herr := s.history.Record(c.Request.Context(), "http", report); herr != nil {
			logger.Log.Warnf("Failed to record conversion run: %v", herr)
		}
	}

	var allFailed *batch.AllFailedError
	switch {
	case errors.As(err, &allFailed):
		c.String(http.StatusBadRequest, "All links failed to convert:\n\n%s", allFailed.Summary())
		return
	case errors.Is(err, batch.ErrTooManyLinks), errors.Is(err, batch.ErrNoLinks):
		c.String(http.StatusBadRequest, "Error: %v", err)
		return
	case err != nil:
		c.String(http.StatusInternalServerError, "Error: %v", err)
		return
	}

	body := report.Output
	if s.merger != nil && c.Query("template") != "false" {
		body, err = s.merger.Merge(format, report)
		if err != nil {
			logger.Log.Errorf("Template merge for %s failed: %v", format, err)
			c.String(http.StatusInternalServerError, "Error: %v", err)
			return
		}
	}

	s.stats.Converted(len(report.Succeeded))
	c.Header("X-Proxies-Processed", strconv.Itoa(len(report.Succeeded)))
	if n := len(report.Failed); n > 0 {
		c.Header("X-Proxies-Failed", strconv.Itoa(n))
	}
	c.Data(http.StatusOK, report.ContentType, []byte(body))
}

// requestLinks collects links from ?link= on GET, or from a JSON
// {"links": [...]} or free text body on POST.
func (s *Server) requestLinks(c *gin.Context) ([]string, error) {
	if c.Request.Method == http.MethodGet {
		return link.SplitList(c.Query("link")), nil
	}

	reader := io.Reader(c.Request.Body)
	if limit := s.cfg.Server.MaxBodyBytes; limit > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (limit %d bytes)", errBodyTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if c.ContentType() == "application/json" || strings.HasPrefix(trimmed, "{") {
		var req convertRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("body must be {\"links\": [...]}: %w", err)
		}
		var links []string
		for _, l := range req.Links {
			if l = strings.TrimSpace(l); l != "" {
				links = append(links, l)
			}
		}
		return links, nil
	}
	return link.Extract(trimmed), nil
}

func (s *Server) handleHealth(c *gin.Context) {
	target := c.Query("proxy")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ?proxy=host:port"})
		return
	}

	res, err := s.prober.Probe(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !res.Up() {
		alert.Async(s.notifier, alert.DownMessage(res), alertTimeout, func(err error) {
			logger.Log.Warnf("Alert for %s failed: %v", res.Proxy, err)
		})
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.stats.WritePrometheus(c.Writer); err != nil {
		logger.Log.Warnf("Writing metrics failed: %v", err)
	}
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Alive", "time": time.Now().UTC().Format(time.RFC3339)})
}
