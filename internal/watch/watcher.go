// Package watch notices vendor spreadsheets dropped into the process
// folder so the console can offer or start a scrape without manual
// file picking.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettle = 500 * time.Millisecond

// Watcher reports each spreadsheet that lands in one folder. A file
// is reported once its events go quiet for the settle delay, so a
// copy in progress is not picked up half-written.
type Watcher struct {
	fw     *fsnotify.Watcher
	onFile func(path string)
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

// New starts watching folder with the default settle delay.
func New(folder string, onFile func(path string)) (*Watcher, error) {
	return NewWithSettle(folder, onFile, defaultSettle)
}

// NewWithSettle starts watching folder, reporting files via onFile
// after settle of quiet time.
func NewWithSettle(folder string, onFile func(path string), settle time.Duration) (*Watcher, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("watch folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch folder %s is not a directory", folder)
	}
	if settle <= 0 {
		settle = defaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(folder); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", folder, err)
	}

	w := &Watcher{
		fw:      fw,
		onFile:  onFile,
		settle:  settle,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher and cancels pending reports.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()

		w.mu.Lock()
		for path, timer := range w.pending {
			timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !isSpreadsheet(ev.Name) {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}

// schedule arms or rearms the settle timer for one path. Every write
// event pushes the report out again until the file goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		w.onFile(path)
	})
}

func isSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xls":
		return true
	default:
		return false
	}
}
