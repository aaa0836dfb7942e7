package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DigestSettings is the hot-reloadable part of the digest schedule. It lives
// in a JSON file next to the database so a running scheduler can be retimed
// without a restart.
type DigestSettings struct {
	Enabled   bool   `json:"enabled"`
	Cron      string `json:"cron"`
	Timezone  string `json:"timezone"`
	NewsLines int    `json:"news_lines"`
}

func (s DigestSettings) Validate() error {
	if _, err := cron.ParseStandard(s.Cron); err != nil {
		return fmt.Errorf("invalid digest cron %q: %w", s.Cron, err)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if s.NewsLines < 0 {
		return fmt.Errorf("news_lines must not be negative")
	}
	return nil
}

func (s DigestSettings) Location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid digest timezone %q: %w", tz, err)
	}
	return loc, nil
}

func DefaultDigestSettings(c DigestConfig) DigestSettings {
	return DigestSettings{
		Enabled:   true,
		Cron:      c.Cron,
		Timezone:  c.Timezone,
		NewsLines: c.NewsLines,
	}
}

type Manager struct {
	path         string
	mu           sync.RWMutex
	settings     DigestSettings
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	onChange     func(DigestSettings)
	suppressSelf atomic.Bool
	log          *zap.SugaredLogger
}

type managerOptions struct {
	path     string
	initial  *DigestSettings
	debounce time.Duration
	log      *zap.SugaredLogger
}

type ManagerOption func(*managerOptions)

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.path == "" {
		return nil, errors.New("digest settings path is required")
	}
	if options.log == nil {
		options.log = zap.NewNop().Sugar()
	}

	if err := os.MkdirAll(filepath.Dir(options.path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	settings, err := loadOrCreateSettings(options.path, options)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:     options.path,
		settings: settings,
		debounce: options.debounce,
		log:      options.log,
	}, nil
}

func (m *Manager) Get() DigestSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var s DigestSettings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return fmt.Errorf("parse settings json: %w", err)
	}
	return m.Update(s)
}

func (m *Manager) Update(next DigestSettings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()
	if reflect.DeepEqual(current, next) {
		return nil
	}

	m.suppressSelf.Store(true)
	defer time.AfterFunc(m.debounce, func() { m.suppressSelf.Store(false) })

	if err := writeSettingsFile(m.path, next); err != nil {
		m.suppressSelf.Store(false)
		return err
	}

	m.apply(next)
	return nil
}

// Watch calls onChange whenever the settings file is edited on disk. The
// watcher stops when ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(DigestSettings)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.watcher = watcher
	m.mu.Unlock()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch settings dir: %w", err)
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, m.reloadFromDisk)
		timerMu.Unlock()
	}

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !m.isSettingsEvent(evt) || m.suppressSelf.Load() {
				continue
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				m.log.Warnw("settings watcher error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) isSettingsEvent(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(m.path) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reloadFromDisk() {
	s, err := loadSettingsFile(m.path)
	if err != nil {
		m.log.Warnw("settings reload failed", "path", m.path, "error", err)
		return
	}
	if err := s.Validate(); err != nil {
		m.log.Warnw("settings rejected", "path", m.path, "error", err)
		return
	}

	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()
	if reflect.DeepEqual(current, s) {
		return
	}
	m.apply(s)
}

func (m *Manager) apply(s DigestSettings) {
	m.mu.Lock()
	m.settings = s
	cb := m.onChange
	m.mu.Unlock()

	m.log.Infow("digest settings applied", "cron", s.Cron, "timezone", s.Timezone, "enabled", s.Enabled)
	if cb != nil {
		cb(s)
	}
}

func loadOrCreateSettings(path string, options managerOptions) (DigestSettings, error) {
	if _, err := os.Stat(path); err == nil {
		s, err := loadSettingsFile(path)
		if err != nil {
			return DigestSettings{}, fmt.Errorf("load settings: %w", err)
		}
		if err := s.Validate(); err != nil {
			return DigestSettings{}, err
		}
		return s, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return DigestSettings{}, fmt.Errorf("stat settings: %w", err)
	}

	s := DefaultDigestSettings(DigestConfig{Cron: "0 17 * * *", Timezone: "Local", NewsLines: 5})
	if options.initial != nil {
		s = *options.initial
	}
	if err := s.Validate(); err != nil {
		return DigestSettings{}, err
	}
	if err := writeSettingsFile(path, s); err != nil {
		return DigestSettings{}, fmt.Errorf("write initial settings: %w", err)
	}
	return s, nil
}

func loadSettingsFile(path string) (DigestSettings, error) {
	var s DigestSettings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

func writeSettingsFile(path string, s DigestSettings) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "digest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&s); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("flush settings: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp settings: %w", err)
	}
	return os.Rename(tmpFile.Name(), path)
}

func WithSettingsPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.path = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithInitialSettings(s *DigestSettings) ManagerOption {
	return func(o *managerOptions) {
		o.initial = s
	}
}

func WithLogger(l *zap.SugaredLogger) ManagerOption {
	return func(o *managerOptions) {
		o.log = l
	}
}
