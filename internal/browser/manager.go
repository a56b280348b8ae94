// Package browser owns the Chrome instance and exposes loaded pages as
// types.PageDriver implementations. One directory, one page, one browser
// context at a time: the scheduler's allowance math assumes serialized
// attempts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kstephens0331/carsub/internal/config"
	"github.com/kstephens0331/carsub/internal/logging"
)

// Manager owns the browser process and hands out one page at a time.
type Manager struct {
	cfg        config.BrowserConfig
	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
}

// NewManager creates a manager from browser config.
func NewManager(cfg config.BrowserConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or reuses a live connection) and connects.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.Browser("stale browser connection, relaunching")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
	}

	launch := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.Bin != "" {
		launch = launch.Bin(m.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	logging.Browser("browser connected (headless=%v)", m.cfg.Headless)
	return nil
}

// IsConnected returns whether the browser is connected.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// OpenPage opens an incognito page, navigates, and waits for load. The
// caller owns the returned page and must Close it before opening the next.
func (m *Manager) OpenPage(ctx context.Context, url string) (*Page, error) {
	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return nil, errors.New("browser not started")
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserDebug("failed to set viewport: %v", err)
	}

	timeout := m.cfg.NavigationTimeout()
	if err := page.Timeout(timeout).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		logging.BrowserDebug("wait load %s: %v", url, err)
	}
	// Settle: many directory pages build their forms after load.
	time.Sleep(1500 * time.Millisecond)

	logging.Browser("loaded %s", url)
	return &Page{page: page, timeout: timeout}, nil
}

// Shutdown closes the browser.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	return err
}
