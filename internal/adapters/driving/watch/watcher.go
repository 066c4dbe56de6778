// Package watch provides a folder-watching driving adapter. Files created
// or modified in the watched directory are ingested into the knowledge
// base; removed files are deleted from it. Document IDs derive from the
// file path, so a rewrite of the same file replaces its prior version.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// defaultDebounce coalesces the burst of write events editors emit when
// saving a file.
const defaultDebounce = 500 * time.Millisecond

// Watcher ingests files from a single directory as they change.
// Subdirectories are not watched.
type Watcher struct {
	dir       string
	ingest    driving.IngestService
	documents driving.DocumentService
	debounce  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the write-event debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for dir. The directory must exist.
func New(dir string, ingest driving.IngestService, documents driving.DocumentService, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("watch path %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("watch path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}

	w := &Watcher{
		dir:       filepath.Clean(dir),
		ingest:    ingest,
		documents: documents,
		debounce:  defaultDebounce,
		timers:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ScanExisting ingests the files already present in the directory.
// Hidden files and subdirectories are skipped. Per-file failures are
// logged and do not stop the scan; the count of ingested files is
// returned.
func (w *Watcher) ScanExisting(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("reading watch directory: %w", err)
	}

	ingested := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if err := w.ingestFile(ctx, path); err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		ingested++
	}
	return ingested, nil
}

// Run watches the directory until the context is cancelled. Create and
// write events ingest the file after a debounce interval; remove and
// rename events delete the document.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsWatcher.Close() //nolint:errcheck

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	logger.Info("Watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.processEvent(ctx, event)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// processEvent dispatches one filesystem event. Writes are debounced per
// path so editor save bursts collapse into one ingestion.
func (w *Watcher) processEvent(ctx context.Context, event fsnotify.Event) {
	if isHidden(filepath.Base(event.Name)) {
		return
	}

	switch {
	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		w.cancelTimer(event.Name)
		if err := w.removeFile(ctx, event.Name); err != nil {
			logger.Warn("Removing %s: %v", event.Name, err)
		}

	case event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Write == fsnotify.Write:
		// Directories show up on create events; ingestion only wants files.
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return
		}
		w.scheduleIngest(ctx, event.Name)
	}
}

// scheduleIngest (re)arms the debounce timer for a path.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if err := w.ingestFile(ctx, path); err != nil {
			logger.Warn("Ingesting %s: %v", path, err)
		}
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// ingestFile reads a file and runs it through the ingestion pipeline.
// The document ID derives from the path, so re-ingestion replaces the
// prior version. A file that vanished between event and read is not an
// error.
func (w *Watcher) ingestFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	receipt, err := w.ingest.Ingest(ctx, domain.IngestRequest{
		DocumentID: documentID(path),
		URI:        path,
		Title:      filepath.Base(path),
		Content:    content,
	})
	if err != nil {
		return err
	}

	logger.Debug("Ingested %s as %s (%d chunks)", path, receipt.DocumentID, receipt.ChunkCount)
	return nil
}

// removeFile deletes the document derived from a path. Unknown documents
// are fine: the file may have been hidden, unsupported or never ingested.
func (w *Watcher) removeFile(ctx context.Context, path string) error {
	err := w.documents.Delete(ctx, documentID(path))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// documentID derives a stable identifier from the absolute file path.
// The ingest command uses the same derivation, so watching a directory
// and ingesting its files by hand address the same documents.
func documentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])
}

// isHidden reports whether a file name is dot-prefixed. The special
// entries "." and ".." do not count.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
