package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"

	"vortexconv/internal/config"
	"vortexconv/internal/geoip"
	"vortexconv/internal/logger"
	"vortexconv/internal/metrics"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

var ErrBadTarget = errors.New("proxy must be host:port with a port between 1 and 65535")

type TCPResult struct {
	Success   bool   `json:"success"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Result is the health report for one target.
type Result struct {
	Proxy     string        `json:"proxy"`
	Status    string        `json:"status"`
	TCP       TCPResult     `json:"tcp"`
	Geo       *geoip.Result `json:"geo,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func (r *Result) Up() bool { return r.Status == StatusUp }

// Prober checks TCP reachability of proxy endpoints, optionally through an
// upstream proxy, with retries.
type Prober struct {
	timeout time.Duration
	retries int
	dialer  proxy.ContextDialer
	geo     *geoip.DB
	metrics *metrics.Collector
}

type Option func(*Prober)

// WithGeoIP annotates reachable targets with ISP and country.
func WithGeoIP(db *geoip.DB) Option {
	return func(p *Prober) { p.geo = db }
}

func WithMetrics(mc *metrics.Collector) Option {
	return func(p *Prober) { p.metrics = mc }
}

// New builds a Prober from cfg. An unusable proxy_url is an error.
func New(cfg config.ProbeConfig, opts ...Option) (*Prober, error) {
	p := &Prober{
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		dialer:  &net.Dialer{},
	}
	if p.timeout <= 0 {
		p.timeout = 5 * time.Second
	}

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid probe proxy_url: %w", err)
		}
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("unsupported probe proxy_url: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("probe proxy %s cannot dial with a context", u.Scheme)
		}
		p.dialer = cd
		logger.Log.Debugf("Probing through proxy: %s", cfg.ProxyURL)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ParseTarget validates "host:port".
func ParseTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil || host == "" {
		return "", 0, ErrBadTarget
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, ErrBadTarget
	}
	return host, port, nil
}

// Probe dials target up to 1+retries times. Only a malformed target is an
// error; an unreachable one is a DOWN result.
func (p *Prober) Probe(ctx context.Context, target string) (*Result, error) {
	host, _, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	res := &Result{Proxy: target, Status: StatusDown}
	var lastErr error
attempts:
	for i := 0; i <= p.retries; i++ {
		latency, err := p.dial(ctx, target)
		if err == nil {
			res.Status = StatusUp
			res.TCP = TCPResult{Success: true, LatencyMS: latency.Milliseconds()}
			if p.metrics != nil {
				p.metrics.RecordSuccess(i, latency)
			}
			break
		}

		lastErr = err
		if p.metrics != nil {
			p.metrics.RecordFailure(err)
		}
		if i < p.retries {
			select {
			case <-ctx.Done():
				break attempts
			case <-time.After(200 * time.Millisecond):
			}
		}
	}

	if !res.Up() && lastErr != nil {
		res.TCP = TCPResult{Error: lastErr.Error()}
	}
	if res.Up() && p.geo != nil {
		res.Geo = p.lookup(ctx, host)
	}
	res.Timestamp = time.Now().UTC()
	return res, nil
}

// ProbeAll probes targets concurrently, at most workers at a time, and
// returns results in input order. Malformed targets yield nil entries.
func (p *Prober) ProbeAll(ctx context.Context, targets []string, workers int, done func()) []*Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*Result, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			if done != nil {
				defer done()
			}
			res, err := p.Probe(ctx, target)
			if err != nil {
				logger.Log.Warnf("Skipping %q: %v", target, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Prober) dial(ctx context.Context, target string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return 0, err
	}
	latency := time.Since(start)
	conn.Close()
	return latency, nil
}

func (p *Prober) lookup(ctx context.Context, host string) *geoip.Result {
	ip := host
	if net.ParseIP(host) == nil {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil || len(addrs) == 0 {
			return nil
		}
		ip = addrs[0].IP.String()
	}
	geo, err := p.geo.Lookup(ip)
	if err != nil {
		logger.Log.Debugf("GeoIP lookup for %s failed: %v", ip, err)
		return nil
	}
	return geo
}
