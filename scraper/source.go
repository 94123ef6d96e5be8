package scraper

import (
	"context"
	"time"
)

// Session is a single page-loading lane owned by one pool worker. A
// session is used by at most one in-flight fetch at a time; the pool
// enforces this through worker checkout, not through locking here.
type Session interface {
	// Load returns the rendered document text for url. The deadline
	// bounds the lazy-content scroll loop only; whatever has loaded by
	// then is returned for extraction.
	Load(ctx context.Context, url string, deadline time.Time) (string, error)
	Close() error
}

// Source creates worker sessions. The concrete renderer (headless
// Chrome or a plain HTTP client) is chosen at wiring time.
type Source interface {
	NewSession() (Session, error)
	Close() error
}
