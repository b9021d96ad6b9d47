// Package rodtree captures a positioned-element tree from a live page via
// Chrome headless, producing the pagetree elements the association engine
// consumes. One Eval dumps the whole layout in a single round trip, so the
// captured tree is one consistent snapshot of the page's geometry.
package rodtree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/swatchmatch/pagetree"
)

// Config configures the capture browser.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote_url"`

	// Stealth applies anti-detection measures to every page. Storefronts
	// aggressively fingerprint headless browsers.
	Stealth bool `yaml:"stealth"`

	// NavigateTimeout bounds navigation plus load wait. Default: 30s.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser wraps a Rod browser dedicated to tree capture.
type Browser struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Launch connects to a remote Chrome or starts a local one.
func Launch(cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	var wsURL string
	var lnch *launcher.Launcher
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("rodtree: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodtree: launch: %w", err)
		}
		wsURL = u
		lnch = l
		log.Info("rodtree: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rodtree: connect: %w", err)
	}
	return &Browser{cfg: cfg, browser: b, lnch: lnch}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.lnch != nil {
		b.lnch.Cleanup()
	}
	return err
}

// Capture navigates to pageURL and returns the page's element tree. The
// returned elements are plain in-memory nodes; they stay valid after the
// page or browser is gone, but their geometry is frozen at capture time.
func (b *Browser) Capture(ctx context.Context, pageURL string) (pagetree.Element, error) {
	var page *rod.Page
	var err error
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("rodtree: create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("rodtree: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("rodtree: wait load timeout", "url", pageURL, "error", err)
	}

	res, err := page.Context(ctx).Eval(captureJS)
	if err != nil {
		return nil, fmt.Errorf("rodtree: capture %s: %w", pageURL, err)
	}

	var raw []pagetree.RawNode
	if err := json.Unmarshal([]byte(res.Value.Str()), &raw); err != nil {
		return nil, fmt.Errorf("rodtree: decode capture: %w", err)
	}
	root, err := pagetree.FromNodes(raw)
	if err != nil {
		return nil, fmt.Errorf("rodtree: build tree: %w", err)
	}
	return root, nil
}

// captureJS serialises the element tree in document order with layout
// boxes from getBoundingClientRect. The root box is the viewport so the
// engine's viewport-ratio checks have a denominator.
const captureJS = `() => {
	const nodes = [];
	let next = 0;
	const visit = (el, parent) => {
		const index = next++;
		let box;
		if (parent < 0) {
			box = {x: 0, y: 0, w: window.innerWidth, h: window.innerHeight};
		} else {
			const r = el.getBoundingClientRect();
			box = {x: r.x, y: r.y, w: r.width, h: r.height};
		}
		const attrs = {};
		for (const a of el.attributes) {
			attrs[a.name.toLowerCase()] = a.value;
		}
		nodes.push({index, parent, tag: el.tagName.toLowerCase(), attrs, box});
		for (const c of el.children) {
			visit(c, index);
		}
	};
	visit(document.documentElement, -1);
	return JSON.stringify(nodes);
}`
