// Package importwatch feeds sales exports dropped into an inbox
// directory through the ingest pipeline. The POS machine copies its
// weekly export over the network share; we pick it up once the copy
// has settled.
package importwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/service"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Options configures the inbox watcher.
type Options struct {
	// SettleDelay is how long a file must stay unchanged before it is
	// treated as fully written. Exports copied over SMB arrive in
	// chunks, so reacting to the first write event reads half a file.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 2 * time.Second
	}
}

// pendingFile tracks an export that may still be copying.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// Watcher monitors an inbox directory and ingests export files as they
// settle. Accepted files move to processed/, rejected ones to failed/,
// so the inbox itself only ever holds work in flight.
type Watcher struct {
	inbox  string
	ingest *service.IngestService
	logger *logger.Logger
	opts   Options

	fsw     *fsnotify.Watcher
	pending map[string]*pendingFile
	mu      sync.Mutex
	settled chan string
	done    chan struct{}
}

// New creates an inbox watcher. The inbox directory and its
// processed/ and failed/ subdirectories are created on Run.
func New(inbox string, ing *service.IngestService, log *logger.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		inbox:   filepath.Clean(inbox),
		ingest:  ing,
		logger:  log,
		opts:    opts,
		fsw:     fsw,
		pending: make(map[string]*pendingFile),
		settled: make(chan string, 16),
		done:    make(chan struct{}),
	}, nil
}

// Run blocks until the context is cancelled. Exports already sitting
// in the inbox when it starts are picked up too, so files dropped
// while the server was down are not lost.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.inbox, filepath.Join(w.inbox, processedDir), filepath.Join(w.inbox, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	if err := w.fsw.Add(w.inbox); err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}

	w.logger.Info("watching import inbox", "path", w.inbox, "settle_delay", w.opts.SettleDelay)

	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && isExport(e.Name()) {
			w.startSettling(filepath.Join(w.inbox, e.Name()))
		}
	}

	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.settled:
			w.process(ctx, path)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !isExport(name) {
		return
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(event.Name)
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.startSettling(event.Name)
	}
}

// isExport reports whether a filename looks like a POS export. Dot
// prefixes cover the temp names SMB clients use mid-copy.
func isExport(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// startSettling arms (or re-arms) the settle timer for a file.
func (w *Watcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(path)
	})
	w.pending[path] = p
}

// checkSettled re-arms the timer if the file is still growing,
// otherwise hands it to the processing loop.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		return
	}

	delete(w.pending, path)

	select {
	case w.settled <- path:
	case <-w.done:
	}
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// process ingests one settled export and files it away.
func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("open export failed", "file", name, "error", err)
		return
	}
	result, err := w.ingest.Ingest(ctx, name, f)
	f.Close()

	if err != nil {
		w.logger.Warn("export rejected", "file", name, "error", err)
		w.move(path, failedDir)
		return
	}

	w.logger.Info("export ingested",
		"file", name,
		"batch", result.Batch.ID,
		"rows_kept", result.Report.RowsKept,
		"rows_dropped", result.Report.RowsDropped,
		"held_out", len(result.HeldOut))
	w.move(path, processedDir)
}

// move relocates a handled export into a subdirectory, suffixing the
// name if a previous run already left one there.
func (w *Watcher) move(path, subdir string) {
	name := filepath.Base(path)
	dest := filepath.Join(w.inbox, subdir, name)

	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		dest = filepath.Join(w.inbox, subdir, fmt.Sprintf("%s-%d%s", stem, time.Now().Unix(), ext))
	}

	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn("move export failed", "file", name, "dest", dest, "error", err)
	}
}

func (w *Watcher) close() {
	close(w.done)

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	w.fsw.Close()
}
