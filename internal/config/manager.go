package config

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Manager guards the live configuration. Mapping tables and the outbound
// proxy are hot-reloaded; everything else is fixed at startup.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	stopCh   chan struct{}
	stopOnce sync.Once
	onReload []func(*Config)
}

// NewManager loads the file at path and returns a manager around it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, path: path, stopCh: make(chan struct{})}, nil
}

// NewStaticManager wraps an in-memory config. Used by tests.
func NewStaticManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg, stopCh: make(chan struct{})}
}

// Get returns the current config snapshot. Callers must not mutate it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Mappings returns the three routing tables in lookup order.
func (m *Manager) Mappings() (custom, openai, anthropic map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Mapping.Custom, m.cfg.Mapping.OpenAI, m.cfg.Mapping.Anthropic
}

// Proxy returns the current outbound proxy settings.
func (m *Manager) Proxy() ProxyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Upstream.Proxy
}

// QuotaCeiling returns the per-account usage ceiling for a request type,
// zero when the type is untracked.
func (m *Manager) QuotaCeiling(requestType string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Quota.PerType[requestType]
}

// OnReload registers a callback invoked with the new config after a
// successful hot reload. Must be called before Watch.
func (m *Manager) OnReload(fn func(*Config)) {
	m.onReload = append(m.onReload, fn)
}

func (m *Manager) reload() {
	if m.path == "" {
		return
	}
	cfg, err := Load(m.path)
	if err != nil {
		log.WithError(err).Warn("config reload failed; keeping previous config")
		return
	}
	m.mu.Lock()
	// Only hot-reloadable sections are swapped; server/auth settings need
	// a restart to take effect.
	m.cfg.Mapping = cfg.Mapping
	m.cfg.Upstream.Proxy = cfg.Upstream.Proxy
	m.cfg.Quota = cfg.Quota
	snapshot := m.cfg
	m.mu.Unlock()

	log.WithField("path", m.path).Info("config reloaded")
	for _, fn := range m.onReload {
		fn(snapshot)
	}
}

// Stop terminates the file watcher, if running.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
