package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"flip-analyzer/utils"
)

// RenderOptions control how a page is settled and scrolled before its
// document text is captured.
type RenderOptions struct {
	SettleMs            int
	ScrollStepPx        int
	ScrollPauseMs       int
	MaxScrollIterations int
}

// ChromeSource creates headless-Chrome sessions sharing one browser
// allocator. Each session is a separate tab.
type ChromeSource struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	opts        RenderOptions
	logger      *utils.Logger
}

// NewChromeSource configures a headless browser allocator. chromeBin may
// be empty, in which case the binary is discovered on PATH.
func NewChromeSource(chromeBin string, opts RenderOptions, logger *utils.Logger) *ChromeSource {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[chrome] Using browser binary: %s", chromeBin)

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		execOpts = append(execOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOpts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	_ = cancelSilent

	return &ChromeSource{
		allocCtx:    silentCtx,
		cancelAlloc: cancelAlloc,
		opts:        opts,
		logger:      logger,
	}
}

// NewSession opens a new browser tab.
func (s *ChromeSource) NewSession() (Session, error) {
	tabCtx, cancel := chromedp.NewContext(s.allocCtx)
	return &chromeSession{
		tabCtx: tabCtx,
		cancel: cancel,
		opts:   s.opts,
		logger: s.logger,
	}, nil
}

// Close shuts down the shared browser allocator.
func (s *ChromeSource) Close() error {
	s.cancelAlloc()
	return nil
}

type chromeSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	opts   RenderOptions
	logger *utils.Logger
}

// Load navigates to url, waits for the page to settle, scrolls in fixed
// steps to trigger lazy content, and returns the document HTML. The
// scroll loop stops when the page height stops growing at the bottom,
// after MaxScrollIterations steps, or at the deadline, whichever comes
// first. Pages that never settle are still captured as-is.
func (c *chromeSession) Load(ctx context.Context, url string, deadline time.Time) (string, error) {
	runCtx, cancelRun := context.WithDeadline(c.tabCtx, deadline.Add(30*time.Second))
	defer cancelRun()
	if done := ctx.Done(); done != nil {
		select {
		case <-done:
			return "", ctx.Err()
		default:
		}
	}

	settle := time.Duration(c.opts.SettleMs) * time.Millisecond
	pause := time.Duration(c.opts.ScrollPauseMs) * time.Millisecond

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
	)
	if err != nil {
		return "", fmt.Errorf("chrome navigate %s: %w", url, err)
	}

	for i := 0; i < c.opts.MaxScrollIterations; i++ {
		if time.Now().After(deadline) {
			c.logger.Debug("[chrome] Scroll deadline reached for %s after %d steps", url, i)
			break
		}

		var viewBottom, pageHeight float64
		err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", c.opts.ScrollStepPx), nil),
			chromedp.Sleep(pause),
			chromedp.Evaluate("window.pageYOffset + window.innerHeight", &viewBottom),
			chromedp.Evaluate("document.body.scrollHeight", &pageHeight),
		)
		if err != nil {
			return "", fmt.Errorf("chrome scroll %s: %w", url, err)
		}

		if viewBottom >= pageHeight {
			// One full-height scroll to trigger any remaining lazy sections.
			prev := pageHeight
			err := chromedp.Run(runCtx,
				chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
				chromedp.Sleep(pause),
				chromedp.Evaluate("document.body.scrollHeight", &pageHeight),
			)
			if err != nil {
				return "", fmt.Errorf("chrome final scroll %s: %w", url, err)
			}
			if pageHeight == prev {
				break
			}
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("chrome capture %s: %w", url, err)
	}
	return html, nil
}

func (c *chromeSession) Close() error {
	c.cancel()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// ChromeAvailable reports whether a usable browser binary can be found.
func ChromeAvailable(chromeBin string) bool {
	return chromeBin != "" || findChromeBinary() != ""
}
