package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPSource is a plain-HTTP Source used when no browser binary is
// available. It returns raw HTML without executing scripts, so
// lazy-loaded sections are simply absent; the extraction chain degrades
// to its later tiers on such pages.
type HTTPSource struct {
	client *fasthttp.Client
}

// NewHTTPSource creates an HTTP source with sane timeouts.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		client: &fasthttp.Client{
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// NewSession returns a session sharing the underlying client. HTTP
// sessions hold no per-worker state.
func (s *HTTPSource) NewSession() (Session, error) {
	return &httpSession{client: s.client}, nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type httpSession struct {
	client *fasthttp.Client
}

func (h *httpSession) Load(ctx context.Context, url string, deadline time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	timeout := time.Until(deadline)
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("http fetch %s: %w", url, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return "", fmt.Errorf("http fetch %s: status %d", url, code)
	}
	return string(resp.Body()), nil
}

func (h *httpSession) Close() error { return nil }
