package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/wayfarerhq/wayfarer/pkg/state"
)

// templateDocument is the on-disk template format
type templateDocument struct {
	Version string      `json:"version"`
	State   state.State `json:"state"`
}

// Template is the versioned document new sessions are created from. A
// file-backed template can watch its file and pick up edits without a
// restart; a bad edit keeps the last good version.
type Template struct {
	path     string
	debounce time.Duration

	mu      sync.RWMutex
	state   state.State
	version string

	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
}

// NewTemplate returns the built-in default template
func NewTemplate() *Template {
	return &Template{
		state:   state.NewTemplate(),
		version: "builtin",
	}
}

// NewTemplateFromFile loads a template document from a JSON file
func NewTemplateFromFile(path string) (*Template, error) {
	t := &Template{
		path:     path,
		debounce: 500 * time.Millisecond,
	}

	if err := t.reload(); err != nil {
		return nil, err
	}

	return t, nil
}

// State returns a copy of the template state
func (t *Template) State() state.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Clone()
}

// Version returns the version of the currently loaded template
func (t *Template) Version() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Watch starts watching the template file for changes
func (t *Template) Watch() error {
	if t.path == "" {
		return fmt.Errorf("built-in template has no file to watch")
	}
	if t.watcher != nil {
		return fmt.Errorf("template watch is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors often replace the file by rename,
	// which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		watcher.Close()
		return err
	}

	t.watcher = watcher
	t.stopCh = make(chan struct{})
	go t.run()

	log.Info().Str("path", t.path).Msg("Template watch started")

	return nil
}

// Close stops the template watcher
func (t *Template) Close() error {
	if t.watcher == nil {
		return nil
	}
	close(t.stopCh)
	return t.watcher.Close()
}

// run processes file system events
func (t *Template) run() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(t.path) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Template change detected")

				t.scheduleReload()
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Template watcher error")

		case <-t.stopCh:
			return
		}
	}
}

// scheduleReload debounces the reload so editors that write in bursts
// trigger it once
func (t *Template) scheduleReload() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	t.timer = time.AfterFunc(t.debounce, func() {
		if err := t.reload(); err != nil {
			log.Warn().Err(err).Str("path", t.path).Msg("Template reload failed, keeping previous version")
			return
		}
		log.Info().Str("version", t.Version()).Msg("Template reloaded")
	})
}

// reload reads the template document from disk
func (t *Template) reload() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	var doc templateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if doc.Version == "" {
		doc.Version = "unversioned"
	}

	t.mu.Lock()
	t.state = doc.State
	t.version = doc.Version
	t.mu.Unlock()

	return nil
}
