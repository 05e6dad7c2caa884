package browserd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

const maxListedElements = 25

// chromeDriver drives one headless Chrome over the DevTools protocol.
// The browser lives as long as the driver; per-command deadlines come
// from the caller's context.
type chromeDriver struct {
	cfg    config.BrowserConfig
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChromeDriver launches the browser and returns once DevTools is
// reachable.
func NewChromeDriver(cfg config.BrowserConfig, log *logger.Logger) (Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	// Running with no actions starts the browser now instead of on the
	// first command.
	startCtx, startCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Infow("Browser started", "headless", cfg.Headless)
	return &chromeDriver{cfg: cfg, log: log, ctx: browserCtx, cancel: cancel}, nil
}

// run executes actions on the browser context while honoring the
// caller's deadline.
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var tcancel context.CancelFunc
		tctx, tcancel = context.WithDeadline(d.ctx, deadline)
		defer tcancel()
	}
	return chromedp.Run(tctx, actions...)
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	d.log.Debugw("Navigated", "url", url)
	return nil
}

func (d *chromeDriver) Info(ctx context.Context) (*PageInfo, error) {
	var loc, title, html string
	err := d.run(ctx,
		chromedp.Location(&loc),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &PageInfo{
		URL:    loc,
		Title:  title,
		Links:  doc.Find("a[href]").Length(),
		Forms:  doc.Find("form").Length(),
		Inputs: doc.Find("input, textarea, select").Length(),
	}, nil
}

func (d *chromeDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	d.log.Debugw("Screenshot captured", "path", path, "bytes", len(buf))
	return nil
}

func (d *chromeDriver) Scroll(ctx context.Context, pixels int) error {
	if _, err := d.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d)", pixels)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

func (d *chromeDriver) Evaluate(ctx context.Context, script string) (string, error) {
	var remote *runtime.RemoteObject
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exp, err := runtime.Evaluate(script).WithReturnByValue(true).Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return exp
		}
		remote = obj
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("script failed: %w", err)
	}
	if remote == nil || remote.Value == nil {
		return "", nil
	}
	return string(remote.Value), nil
}

func (d *chromeDriver) Fill(ctx context.Context, selector, value string) error {
	if err := d.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	if err := d.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (d *chromeDriver) Elements(ctx context.Context, selector string) ([]Element, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var out []Element
	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxListedElements {
			return false
		}
		el := Element{Tag: goquery.NodeName(s), Text: collapseText(s.Text(), 120)}
		el.ID, _ = s.Attr("id")
		el.Name, _ = s.Attr("name")
		el.Href, _ = s.Attr("href")
		out = append(out, el)
		return true
	})
	return out, nil
}

func (d *chromeDriver) Close() error {
	d.cancel()
	d.log.Debugw("Browser stopped")
	return nil
}

func collapseText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
