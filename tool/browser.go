package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserCommands lists the commands Browser understands.
var BrowserCommands = []string{"open", "scroll", "click", "write", "read", "close"}

// Browser drives a headless Chrome through the DevTools protocol.
//
// The instruction is the command, the extra its argument:
//
//	open    URL
//	scroll  "dx,dy" in pixels
//	click   CSS selector
//	write   JSON object mapping CSS selectors to text
//	read    ignored
//	close   ignored
//
// Every successful command returns a listing of the visible elements, or
// "No change" when the listing equals the previous one.
type Browser struct {
	opts BrowserOptions

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	last    string
}

// BrowserOptions configures the browser tool.
type BrowserOptions struct {
	// ControlURL connects to a running browser instead of launching one.
	ControlURL string
	Headless   bool
	Timeout    time.Duration
}

// NewBrowser creates a browser tool. Chrome is started on first use.
func NewBrowser(optFns ...func(o *BrowserOptions)) *Browser {
	opts := BrowserOptions{
		Headless: true,
		Timeout:  30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Browser{opts: opts}
}

func (b *Browser) Name() string { return "Browser" }

func (b *Browser) Description() string {
	return "Controls a web browser. The instruction is one of: " + strings.Join(BrowserCommands, ", ") + ". " +
		"The extra is the argument: a URL for open, \"dx,dy\" for scroll, a CSS selector for click, " +
		"a JSON object of CSS selector to text for write. The result lists visible elements with their CSS selectors."
}

type browserStep func(ctx context.Context, page *rod.Page) error

// Use implements Tool.
func (b *Browser) Use(ctx context.Context, instruction, extra string) (string, error) {
	command := strings.ToLower(strings.TrimSpace(instruction))
	extra = strings.TrimSpace(extra)

	step, err := b.parse(command, extra)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if command == "close" {
		if b.page != nil {
			if err := b.page.Close(); err != nil {
				return "", wrapError(b.Name(), CodeExecutionError, err)
			}
			b.page = nil
			b.last = ""
		}
		return "Closed the page", nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	page, err := b.ensurePage(ctx)
	if err != nil {
		return "", wrapError(b.Name(), CodeExecutionError, err)
	}
	page = page.Context(ctx)

	if err := step(ctx, page); err != nil {
		return "", wrapError(b.Name(), CodeExecutionError, err)
	}

	listing, err := b.read(page)
	if err != nil {
		return "", wrapError(b.Name(), CodeExecutionError, err)
	}
	if listing == b.last {
		return "No change", nil
	}
	b.last = listing
	return listing, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser, b.page = nil, nil
	return err
}

func (b *Browser) parse(command, arg string) (browserStep, error) {
	switch command {
	case "open":
		if arg == "" {
			return nil, NewToolError(b.Name(), "open needs a URL", CodeInvalidInput)
		}
		return func(_ context.Context, page *rod.Page) error {
			if err := page.Navigate(arg); err != nil {
				return fmt.Errorf("navigate to %s: %w", arg, err)
			}
			return page.WaitLoad()
		}, nil

	case "scroll":
		dx, dy, err := parseDelta(arg)
		if err != nil {
			return nil, NewToolError(b.Name(), err.Error(), CodeInvalidInput)
		}
		return func(_ context.Context, page *rod.Page) error {
			return page.Mouse.Scroll(dx, dy, 1)
		}, nil

	case "click":
		if arg == "" {
			return nil, NewToolError(b.Name(), "click needs a CSS selector", CodeInvalidInput)
		}
		return func(_ context.Context, page *rod.Page) error {
			el, err := page.Element(arg)
			if err != nil {
				return fmt.Errorf("find %q: %w", arg, err)
			}
			return el.Click(proto.InputMouseButtonLeft, 1)
		}, nil

	case "write":
		var contents map[string]string
		if err := json.Unmarshal([]byte(arg), &contents); err != nil || len(contents) == 0 {
			return nil, NewToolError(b.Name(), fmt.Sprintf("invalid contents %q, expected a JSON object of CSS selector to text", arg), CodeInvalidInput)
		}
		return func(_ context.Context, page *rod.Page) error {
			for selector, text := range contents {
				el, err := page.Element(selector)
				if err != nil {
					return fmt.Errorf("find %q: %w", selector, err)
				}
				if err := el.SelectAllText(); err != nil {
					return fmt.Errorf("clear %q: %w", selector, err)
				}
				if err := el.Input(text); err != nil {
					return fmt.Errorf("write %q: %w", selector, err)
				}
			}
			return nil
		}, nil

	case "read", "close":
		return func(context.Context, *rod.Page) error { return nil }, nil

	default:
		return nil, NewToolError(b.Name(),
			fmt.Sprintf("unknown command %q, expected one of: %s", command, strings.Join(BrowserCommands, ", ")),
			CodeInvalidInput)
	}
}

func (b *Browser) ensurePage(ctx context.Context) (*rod.Page, error) {
	if b.browser == nil {
		controlURL := b.opts.ControlURL
		if controlURL == "" {
			u, err := launcher.New().Headless(b.opts.Headless).Launch()
			if err != nil {
				return nil, fmt.Errorf("launch chrome: %w", err)
			}
			controlURL = u
		}
		// The browser outlives the call that starts it.
		browser := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
		if err := browser.Connect(); err != nil {
			return nil, fmt.Errorf("connect to chrome: %w", err)
		}
		b.browser = browser
	}
	if b.page == nil {
		page, err := b.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		b.page = page
	}
	return b.page, nil
}

const listElementsJS = `() => {
	const selectorOf = (el) => {
		const path = [];
		while (el && el.nodeType === Node.ELEMENT_NODE) {
			let sel = el.nodeName.toLowerCase();
			if (el.id) { path.unshift(sel + '#' + el.id); break; }
			let nth = 1, sib = el;
			while ((sib = sib.previousElementSibling)) { if (sib.nodeName === el.nodeName) nth++; }
			if (nth > 1 || el.nextElementSibling) sel += ':nth-of-type(' + nth + ')';
			path.unshift(sel);
			el = el.parentElement;
		}
		return path.join(' > ');
	};
	const lines = [
		location.href,
		'page height, width: ' + document.body.clientHeight + ', ' + document.body.clientWidth,
		'scroll x, y, height, width: ' + scrollX + ', ' + scrollY + ', ' + innerHeight + ', ' + innerWidth,
		'',
		'(x, y, height, width) contents, css_selector',
	];
	for (const el of document.body.querySelectorAll('*:not(script):not(style)')) {
		const r = el.getBoundingClientRect();
		if (r.width <= 0 || r.height <= 0 || r.top < 0 || r.left < 0 || r.bottom > innerHeight || r.right > innerWidth) continue;
		const tag = el.nodeName.toLowerCase();
		let text = '';
		if (tag === 'input') text = el.getAttribute('placeholder') || el.getAttribute('type') || 'input';
		else if (tag === 'textarea') text = el.getAttribute('placeholder') || 'textarea';
		else if (el.children.length === 0) text = (el.innerText || '').trim();
		if (!text) continue;
		lines.push('(' + Math.round(r.left) + ', ' + Math.round(r.top) + ', ' + Math.round(r.height) + ', ' + Math.round(r.width) + ') ' + text + ', ' + selectorOf(el));
	}
	return lines.join('\n');
}`

func (b *Browser) read(page *rod.Page) (string, error) {
	res, err := page.Evaluate(&rod.EvalOptions{JS: listElementsJS, ByValue: true})
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return "These are the visible elements of the page with their position, contents and CSS selector.\n" + res.Value.Str(), nil
}

func parseDelta(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q, expected \"dx,dy\"", s)
	}
	dx, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q, expected \"dx,dy\"", s)
	}
	dy, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q, expected \"dx,dy\"", s)
	}
	return dx, dy, nil
}
