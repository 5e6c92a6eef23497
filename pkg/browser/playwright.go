package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/playwright-community/playwright-go"

	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
)

const (
	maxInitAttempts = 5
	maxInitDelay    = 10 * time.Second

	// Page content is capped before the extraction call so a single
	// view_page cannot blow the model's context window.
	maxContentChars = 50000

	pageLoadTimeout   = 15 * time.Second
	pageLoadInterval  = 5 * time.Second
	navigateTimeoutMs = 15000
	clickTimeoutMs    = 5000

	extractionSystemPrompt = "You are a professional web page information extraction assistant. " +
		"Please extract all information from the current page content and convert it to Markdown format."
)

// PlaywrightBrowser drives the sandbox's Chrome over its DevTools
// endpoint. Connection setup is lazy: the first operation dials CDP,
// and Cleanup drops everything so the next operation redials.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	llm       llm.Client
	converter *md.Converter
	cdpURL    string

	// Number of elements indexed by the last extraction pass; bounds
	// the indexes the model may reference.
	elementCount int
}

// NewPlaywrightBrowser returns an unconnected browser bound to the
// given CDP endpoint. llm renders page content to markdown in ViewPage.
func NewPlaywrightBrowser(llmClient llm.Client, cdpURL string) *PlaywrightBrowser {
	return &PlaywrightBrowser{
		llm:       llmClient,
		converter: md.NewConverter("", true, nil),
		cdpURL:    cdpURL,
	}
}

// initialize dials the CDP endpoint, retrying with exponential backoff.
// Chrome inside a freshly created sandbox can take several seconds to
// accept connections.
func (b *PlaywrightBrowser) initialize(ctx context.Context) error {
	delay := time.Second
	var lastErr error
	for attempt := 0; attempt < maxInitAttempts; attempt++ {
		if attempt > 0 {
			delay = min(delay*2, maxInitDelay)
			slog.Warn("Browser initialization failed, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := b.connect(); err != nil {
			lastErr = err
			_ = b.Cleanup(ctx)
			continue
		}
		return nil
	}
	return fmt.Errorf("browser initialization failed after %d attempts: %w", maxInitAttempts, lastErr)
}

func (b *PlaywrightBrowser) connect() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("starting playwright driver: %w", err)
	}
	b.pw = pw

	browser, err := pw.Chromium.ConnectOverCDP(b.cdpURL)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", b.cdpURL, err)
	}
	b.browser = browser

	// Reuse Chrome's startup tab when it is the only one; otherwise
	// leave existing tabs alone and work in a fresh page.
	contexts := browser.Contexts()
	if len(contexts) > 0 && len(contexts[0].Pages()) == 1 {
		page := contexts[0].Pages()[0]
		initial, err := isInitialPage(page)
		if err != nil {
			return err
		}
		if initial {
			b.page = page
			return nil
		}
		b.page, err = contexts[0].NewPage()
		return err
	}

	if len(contexts) > 0 {
		b.page, err = contexts[0].NewPage()
		return err
	}
	context, err := browser.NewContext()
	if err != nil {
		return err
	}
	b.page, err = context.NewPage()
	return err
}

func isInitialPage(page playwright.Page) (bool, error) {
	result, err := page.Evaluate("() => window.location.href")
	if err != nil {
		return false, fmt.Errorf("reading page url: %w", err)
	}
	url, _ := result.(string)
	switch url {
	case "", "about:blank", "chrome://newtab/", "chrome://new-tab-page/":
		return true, nil
	}
	return false, nil
}

// ensurePage connects if needed and re-points at the rightmost tab,
// which is where pages opened by in-page javascript land.
func (b *PlaywrightBrowser) ensurePage(ctx context.Context) error {
	if b.browser == nil || b.page == nil {
		if err := b.initialize(ctx); err != nil {
			return err
		}
	}
	contexts := b.browser.Contexts()
	if len(contexts) > 0 {
		if pages := contexts[0].Pages(); len(pages) > 0 {
			b.page = pages[len(pages)-1]
		}
	}
	return nil
}

// Cleanup closes all tabs, the CDP connection and the driver. Errors
// are logged and swallowed so teardown always completes.
func (b *PlaywrightBrowser) Cleanup(ctx context.Context) error {
	if b.browser != nil {
		for _, bc := range b.browser.Contexts() {
			for _, page := range bc.Pages() {
				if page.IsClosed() {
					continue
				}
				if err := page.Close(); err != nil {
					slog.Warn("Failed to close page", "error", err)
				}
			}
		}
		if err := b.browser.Close(); err != nil {
			slog.Warn("Failed to close browser connection", "error", err)
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			slog.Warn("Failed to stop playwright driver", "error", err)
		}
	}
	b.page = nil
	b.browser = nil
	b.pw = nil
	b.elementCount = 0
	return nil
}

// waitForPageLoad polls document.readyState until the page settles or
// the load timeout passes. A slow page is not an error.
func (b *PlaywrightBrowser) waitForPageLoad(ctx context.Context) bool {
	deadline := time.Now().Add(pageLoadTimeout)
	for time.Now().Before(deadline) {
		loaded, err := b.page.Evaluate("() => document.readyState === 'complete'")
		if err == nil {
			if done, ok := loaded.(bool); ok && done {
				return true
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pageLoadInterval):
		}
	}
	return false
}

// ViewPage reports the indexed interactive elements plus a markdown
// extraction of the visible content.
func (b *PlaywrightBrowser) ViewPage(ctx context.Context) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	b.waitForPageLoad(ctx)

	elements, err := b.extractInteractiveElements()
	if err != nil {
		return nil, err
	}
	content, err := b.extractContent(ctx)
	if err != nil {
		return nil, err
	}

	return &models.ToolResult{
		Success: true,
		Data: map[string]any{
			"interactive_elements": elements,
			"content":              content,
		},
	}, nil
}

// Navigate opens url in the current tab. Navigation timeouts are
// logged but not fatal: heavy pages keep loading in the background and
// the refreshed element index is still useful.
func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	b.elementCount = 0

	if _, err := b.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(navigateTimeoutMs),
	}); err != nil {
		slog.Warn("Navigation did not settle", "url", url, "error", err)
	}

	elements, err := b.extractInteractiveElements()
	if err != nil {
		return nil, err
	}
	return &models.ToolResult{
		Success: true,
		Data:    map[string]any{"interactive_elements": elements},
	}, nil
}

// Restart drops the connection and navigates fresh.
func (b *PlaywrightBrowser) Restart(ctx context.Context, url string) (*models.ToolResult, error) {
	_ = b.Cleanup(ctx)
	return b.Navigate(ctx, url)
}

// Click clicks by coordinates when both are given, otherwise by
// element index.
func (b *PlaywrightBrowser) Click(ctx context.Context, index *int, x, y *float64) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}

	switch {
	case x != nil && y != nil:
		if err := b.page.Mouse().Click(*x, *y); err != nil {
			return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to click element: %v", err)}, nil
		}
	case index != nil:
		element, failure := b.elementByIndex(*index)
		if failure != nil {
			return failure, nil
		}
		if visible, err := element.Evaluate(isElementVisibleScript); err == nil {
			if v, ok := visible.(bool); ok && !v {
				_, _ = element.Evaluate(scrollIntoViewScript)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Second):
				}
			}
		}
		if err := element.Click(playwright.ElementHandleClickOptions{
			Timeout: playwright.Float(clickTimeoutMs),
		}); err != nil {
			return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to click element: %v", err)}, nil
		}
	}
	return &models.ToolResult{Success: true}, nil
}

// Input types text into an element or at coordinates, optionally
// pressing Enter afterwards.
func (b *PlaywrightBrowser) Input(ctx context.Context, text string, pressEnter bool, index *int, x, y *float64) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}

	switch {
	case x != nil && y != nil:
		if err := b.page.Mouse().Click(*x, *y); err != nil {
			return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
		}
		if err := b.page.Keyboard().Type(text); err != nil {
			return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
		}
	case index != nil:
		element, failure := b.elementByIndex(*index)
		if failure != nil {
			return failure, nil
		}
		// Fill clears existing content but rejects non-editable
		// targets; fall back to clicking and typing.
		if err := element.Fill(""); err == nil {
			if err := element.Type(text); err != nil {
				return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
			}
		} else {
			if err := element.Click(); err != nil {
				return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
			}
			if err := b.page.Keyboard().Type(text); err != nil {
				return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
			}
		}
	}

	if pressEnter {
		if err := b.page.Keyboard().Press("Enter"); err != nil {
			return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to input text: %v", err)}, nil
		}
	}
	return &models.ToolResult{Success: true}, nil
}

func (b *PlaywrightBrowser) MoveMouse(ctx context.Context, x, y float64) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	if err := b.page.Mouse().Move(x, y); err != nil {
		return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to move mouse: %v", err)}, nil
	}
	return &models.ToolResult{Success: true}, nil
}

func (b *PlaywrightBrowser) PressKey(ctx context.Context, key string) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	if err := b.page.Keyboard().Press(key); err != nil {
		return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to press key: %v", err)}, nil
	}
	return &models.ToolResult{Success: true}, nil
}

// SelectOption picks the option-th entry of the select element at
// index.
func (b *PlaywrightBrowser) SelectOption(ctx context.Context, index, option int) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	element, failure := b.elementByIndex(index)
	if failure != nil {
		return failure, nil
	}
	if _, err := element.SelectOption(playwright.SelectOptionValues{Indexes: &[]int{option}}); err != nil {
		return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to select option: %v", err)}, nil
	}
	return &models.ToolResult{Success: true}, nil
}

func (b *PlaywrightBrowser) ScrollUp(ctx context.Context, toTop bool) (*models.ToolResult, error) {
	return b.scroll(ctx, "window.scrollTo(0, 0)", "window.scrollBy(0, -window.innerHeight)", toTop)
}

func (b *PlaywrightBrowser) ScrollDown(ctx context.Context, toBottom bool) (*models.ToolResult, error) {
	return b.scroll(ctx, "window.scrollTo(0, document.body.scrollHeight)", "window.scrollBy(0, window.innerHeight)", toBottom)
}

func (b *PlaywrightBrowser) scroll(ctx context.Context, toEdge, byViewport string, edge bool) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	script := byViewport
	if edge {
		script = toEdge
	}
	if _, err := b.page.Evaluate(script); err != nil {
		return &models.ToolResult{Success: false, Message: fmt.Sprintf("Failed to scroll: %v", err)}, nil
	}
	return &models.ToolResult{Success: true}, nil
}

// ConsoleExec evaluates javascript in the page and returns its result.
func (b *PlaywrightBrowser) ConsoleExec(ctx context.Context, javascript string) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	result, err := b.page.Evaluate(javascript)
	if err != nil {
		return nil, fmt.Errorf("executing javascript: %w", err)
	}
	return &models.ToolResult{Success: true, Data: map[string]any{"result": result}}, nil
}

// ConsoleView returns the page's captured console log tail.
func (b *PlaywrightBrowser) ConsoleView(ctx context.Context, maxLines int) (*models.ToolResult, error) {
	if err := b.ensurePage(ctx); err != nil {
		return nil, err
	}
	result, err := b.page.Evaluate("() => window.console.logs || []")
	if err != nil {
		return nil, fmt.Errorf("reading console logs: %w", err)
	}
	logs, _ := result.([]any)
	logs = tailLines(logs, maxLines)
	return &models.ToolResult{Success: true, Data: map[string]any{"logs": logs}}, nil
}

func tailLines(logs []any, maxLines int) []any {
	if maxLines > 0 && len(logs) > maxLines {
		return logs[len(logs)-maxLines:]
	}
	return logs
}

// elementByIndex resolves a model-supplied element index against the
// attributes assigned by the last extraction pass. The failure result
// is non-nil when the index cannot be resolved.
func (b *PlaywrightBrowser) elementByIndex(index int) (playwright.ElementHandle, *models.ToolResult) {
	if index < 0 || index >= b.elementCount {
		return nil, &models.ToolResult{
			Success: false,
			Message: fmt.Sprintf("Cannot find interactive element with index %d", index),
		}
	}
	element, err := b.page.QuerySelector(fmt.Sprintf(`[data-sable-id="sable-element-%d"]`, index))
	if err != nil || element == nil {
		return nil, &models.ToolResult{
			Success: false,
			Message: fmt.Sprintf("Cannot find interactive element with index %d", index),
		}
	}
	return element, nil
}

// extractInteractiveElements runs the indexing script and renders each
// element as "index:<tag>text</tag>" for the model.
func (b *PlaywrightBrowser) extractInteractiveElements() ([]string, error) {
	result, err := b.page.Evaluate(extractInteractiveElementsScript)
	if err != nil {
		return nil, fmt.Errorf("extracting interactive elements: %w", err)
	}
	items, _ := result.([]any)
	b.elementCount = len(items)
	return formatInteractiveElements(items), nil
}

func formatInteractiveElements(items []any) []string {
	formatted := make([]string, 0, len(items))
	for _, item := range items {
		el, ok := item.(map[string]any)
		if !ok {
			continue
		}
		index := 0
		if f, ok := el["index"].(float64); ok {
			index = int(f)
		}
		tag, _ := el["tag"].(string)
		text, _ := el["text"].(string)
		formatted = append(formatted, fmt.Sprintf("%d:<%s>%s</%s>", index, tag, text, tag))
	}
	return formatted
}

// extractContent converts the visible page region to markdown and asks
// the model to distill it.
func (b *PlaywrightBrowser) extractContent(ctx context.Context) (string, error) {
	result, err := b.page.Evaluate(extractVisibleContentScript)
	if err != nil {
		return "", fmt.Errorf("extracting page content: %w", err)
	}
	html, _ := result.(string)

	markdown, err := b.converter.ConvertString(html)
	if err != nil {
		slog.Warn("Markdown conversion failed, using raw HTML", "error", err)
		markdown = html
	}
	markdown = truncateRunes(markdown, maxContentChars)

	response, err := b.llm.Ask(ctx, []models.Message{
		{Role: models.RoleSystem, Content: extractionSystemPrompt},
		{Role: models.RoleUser, Content: markdown},
	}, nil, "")
	if err != nil {
		return "", fmt.Errorf("extracting page content: %w", err)
	}
	return response.Content, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
