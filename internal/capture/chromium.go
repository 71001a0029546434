// Package capture renders a running planner page to PNG with headless
// Chromium.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth   = 1024
	DefaultHeight  = 768
	DefaultTimeout = 30 * time.Second

	// ReadySelector matches the page root once a schedule has been rendered.
	ReadySelector = `[data-ready="true"]`
)

// Options defines one capture.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/".
	URL string
	// OutputPath is where the PNG is written.
	OutputPath string
	// Term, if set, is clicked in the term selector before the screenshot.
	Term string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) setDefaults() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// Tasks returns the chromedp actions for opts, writing the screenshot into
// png. Split out so tests can inspect the sequence without a browser.
func Tasks(opts Options, png *[]byte) chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
	}
	if opts.Term != "" {
		tasks = append(tasks,
			chromedp.Click(fmt.Sprintf(`button[data-term=%q]`, opts.Term), chromedp.ByQuery),
			chromedp.WaitVisible(fmt.Sprintf(`[data-term-active=%q]`, opts.Term), chromedp.ByQuery),
		)
	}
	return append(tasks,
		chromedp.Sleep(250*time.Millisecond),
		chromedp.FullScreenshot(png, 100),
	)
}

// CapturePNG navigates to opts.URL, waits for the schedule to render, and
// writes a full-page PNG screenshot to opts.OutputPath.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if err := opts.setDefaults(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	if err := chromedp.Run(ctx, Tasks(opts, &png)); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
