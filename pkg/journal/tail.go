// pkg/journal/tail.go

package journal

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Tail returns the last n lines of the journal at path, oldest first.
// n <= 0 returns every line.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "open journal %s", path)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, cerr.Wrapf(err, "read journal %s", path)
	}
	return lines, nil
}

// Follow copies bytes appended to path into w until ctx is cancelled.
func Follow(ctx context.Context, path string, w io.Writer) error {
	return follow(ctx, path, w, nil)
}

func follow(ctx context.Context, path string, w io.Writer, ready func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cerr.Wrap(err, "create watcher")
	}
	defer func() { _ = watcher.Close() }()

	// watch the directory so a recreated journal is picked up
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return cerr.Wrapf(err, "watch %s", filepath.Dir(path))
	}

	pos := fileSize(path)
	if ready != nil {
		ready()
	}

	log := otelzap.Ctx(ctx)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := consume(path, &pos, w); err != nil {
					log.Warn("Journal follow read failed", zap.String("path", path), zap.Error(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Journal watch error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}

func consume(path string, pos *int64, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < *pos {
		// truncated or replaced
		*pos = 0
	}
	if _, err := f.Seek(*pos, io.SeekStart); err != nil {
		return err
	}
	n, err := io.Copy(w, f)
	*pos += n
	return err
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
