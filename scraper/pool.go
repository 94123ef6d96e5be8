package scraper

import (
	"context"
	"sync"
	"time"

	"flip-analyzer/utils"
)

// Pool runs page fetches across a fixed set of reusable worker lanes.
// Checking a worker ID out of the channel is both the bounded-parallelism
// slot and the guarantee that each lane has a single owner at a time.
// Fetch never returns an error: any failure is logged and reported as a
// miss so the extraction chain can degrade to its synthetic tier.
type Pool struct {
	source  Source
	limiter *RateLimiter
	logger  *utils.Logger
	timeout time.Duration

	ids  chan int
	size int

	mu       sync.Mutex
	sessions []Session
	closed   bool
}

// NewPool creates a pool of size worker lanes over the given source.
// Sessions are created lazily on each lane's first fetch.
func NewPool(source Source, limiter *RateLimiter, size int, perURLTimeout time.Duration, logger *utils.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	ids := make(chan int, size)
	for i := 0; i < size; i++ {
		ids <- i
	}
	return &Pool{
		source:   source,
		limiter:  limiter,
		logger:   logger,
		timeout:  perURLTimeout,
		ids:      ids,
		size:     size,
		sessions: make([]Session, size),
	}
}

// Fetch loads the page at url through one of the pool's lanes and
// returns its document text. ok is false when the fetch failed or the
// pool is shut down; callers fall through to estimation in that case.
func (p *Pool) Fetch(ctx context.Context, address, url, siteLabel string) (html string, ok bool) {
	select {
	case id := <-p.ids:
		defer func() { p.ids <- id }()
		return p.fetchWith(ctx, id, address, url, siteLabel)
	case <-ctx.Done():
		return "", false
	}
}

func (p *Pool) fetchWith(ctx context.Context, id int, address, url, siteLabel string) (string, bool) {
	sess, err := p.session(id)
	if err != nil {
		p.logger.Warn("[pool] Worker %d session init failed for %s: %v", id, address, err)
		return "", false
	}

	p.limiter.Wait(id)

	deadline := time.Now().Add(p.timeout)
	p.logger.Debug("[pool] Worker %d fetching %s (%s)", id, url, siteLabel)

	html, err := sess.Load(ctx, url, deadline)
	if err != nil {
		p.logger.Warn("[pool] Worker %d fetch failed for %s: %v", id, url, err)
		return "", false
	}
	return html, true
}

// session returns lane id's session, creating it on first use.
func (p *Pool) session(id int) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, context.Canceled
	}
	if p.sessions[id] == nil {
		p.logger.Debug("[pool] Initializing worker %d session", id)
		sess, err := p.source.NewSession()
		if err != nil {
			return nil, err
		}
		p.sessions[id] = sess
	}
	return p.sessions[id], nil
}

// Shutdown closes every initialized session exactly once, tolerating
// individual close failures. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for i, sess := range p.sessions {
		if sess == nil {
			continue
		}
		if err := sess.Close(); err != nil {
			p.logger.Warn("[pool] Worker %d close failed: %v", i, err)
		}
		p.sessions[i] = nil
	}
	if err := p.source.Close(); err != nil {
		p.logger.Warn("[pool] Source close failed: %v", err)
	}
}
