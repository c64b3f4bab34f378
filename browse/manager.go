package browse

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Manager owns a Rod browser instance. The browser is lazily launched on
// first use so a daemon that never fetches pages never spawns Chromium.
type Manager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	headless bool
}

// NewManager creates a Manager. The browser is not started until Page is
// first called.
func NewManager(headless bool) *Manager {
	return &Manager{headless: headless}
}

// ensureBrowser starts the browser if it is not already running.
// Must be called with m.mu held.
func (m *Manager) ensureBrowser() error {
	if m.browser != nil {
		return nil
	}

	l := launcher.New().Headless(m.headless)
	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	m.browser = rod.New().ControlURL(url)
	if err := m.browser.Connect(); err != nil {
		m.browser = nil
		return fmt.Errorf("connect to browser: %w", err)
	}
	return nil
}

// Page opens a fresh blank page. The caller owns it and must Close it.
func (m *Manager) Page() (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := m.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

// Shutdown closes the browser if it was ever started.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		err := m.browser.Close()
		m.browser = nil
		return err
	}
	return nil
}
