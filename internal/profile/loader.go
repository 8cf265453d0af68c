// Package profile loads the trading persona from YAML and watches the file
// for hot reloads. Changes are picked up between cycles, never mid-cycle.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"arena/internal/logger"
)

// Persona describes the character and constraints injected into the system prompt.
type Persona struct {
	Name          string   `yaml:"name"`
	Style         string   `yaml:"style"`
	RiskTolerance string   `yaml:"risk_tolerance"`
	Universe      []string `yaml:"universe"`
	Directives    []string `yaml:"directives"`
	Notes         string   `yaml:"notes"`
}

// Render formats the persona as a prompt fragment.
func (p Persona) Render() string {
	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "You are %s.\n", p.Name)
	}
	if p.Style != "" {
		fmt.Fprintf(&b, "Trading style: %s\n", p.Style)
	}
	if p.RiskTolerance != "" {
		fmt.Fprintf(&b, "Risk tolerance: %s\n", p.RiskTolerance)
	}
	if len(p.Universe) > 0 {
		fmt.Fprintf(&b, "Tradable symbols: %s\n", strings.Join(p.Universe, ", "))
	}
	for _, d := range p.Directives {
		if d = strings.TrimSpace(d); d != "" {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "%s\n", p.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Snapshot is an immutable view of the loaded persona.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Persona  Persona
}

// ChangeListener is called after a successful reload.
type ChangeListener func(Snapshot)

// Loader reads the persona file and republished snapshots on change.
type Loader struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
	closed    chan struct{}
}

// NewLoader loads the persona once. A missing file is not fatal: the loader
// serves an empty persona and picks the file up when it appears.
func NewLoader(path string, watch bool) (*Loader, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("persona path is required")
	}
	l := &Loader{path: path, closed: make(chan struct{})}
	if err := l.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.Warnf("persona file %s not found, using empty persona", path)
		l.snapshot = Snapshot{Version: 1, LoadedAt: time.Now()}
	}
	if watch {
		if err := l.startWatcher(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Loader) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watching the directory survives editors that replace the file on save.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return err
	}
	l.watcher = w
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	base := filepath.Base(l.path)
	for {
		select {
		case <-l.closed:
			return
		case evt, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(evt.Name) != base {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if err := l.reload(); err != nil {
				logger.Errorf("persona reload failed (%s): %v", evt.Name, err)
				continue
			}
			l.notify()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("persona watcher error: %v", err)
		}
	}
}

// Snapshot returns the current persona snapshot.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe registers a listener; it does not fire for the initial state.
func (l *Loader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Close stops the file watcher.
func (l *Loader) Close() error {
	select {
	case <-l.closed:
		return nil
	default:
	}
	close(l.closed)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *Loader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	var persona Persona
	if err := yaml.Unmarshal(raw, &persona); err != nil {
		return fmt.Errorf("parsing persona file: %w", err)
	}
	normalizePersona(&persona)
	l.mu.Lock()
	l.snapshot = Snapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Persona:  persona,
	}
	version := l.snapshot.Version
	l.mu.Unlock()
	logger.Infof("persona loaded from %s (version %d)", filepath.Base(l.path), version)
	return nil
}

func (l *Loader) notify() {
	l.mu.RLock()
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("persona listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func normalizePersona(p *Persona) {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Style = strings.TrimSpace(p.Style)
	p.RiskTolerance = strings.TrimSpace(p.RiskTolerance)
	out := p.Universe[:0]
	for _, sym := range p.Universe {
		if s := strings.ToUpper(strings.TrimSpace(sym)); s != "" {
			out = append(out, s)
		}
	}
	p.Universe = out
}
