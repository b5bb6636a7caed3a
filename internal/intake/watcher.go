package intake

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event before
// running a sync pass.
const DefaultDebounce = 250 * time.Millisecond

// Watch runs a sync pass whenever Markdown files are created in or written
// to absDir, the absolute path of the importer's directory. Bursts of events
// are coalesced. It blocks until ctx is cancelled.
func Watch(ctx context.Context, im *Importer, absDir string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(absDir); err != nil {
		return err
	}
	im.logger.Info("intake: watcher started", slog.String("dir", absDir))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerC = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			im.logger.Info("intake: watcher stopped")
			return nil

		case <-timerC:
			if _, err := im.Sync(ctx); err != nil && ctx.Err() == nil {
				im.logger.Warn("intake: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != filepath.Clean(absDir) || !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				im.logger.Debug("intake: profile event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("intake: watcher error", slog.String("error", werr.Error()))
		}
	}
}
