// Package output writes the timestamped files every command produces and
// optionally publishes them to object storage.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"peerdata/internal/table"
)

// TimestampLayout is the file name prefix, day first: 16_10_26_14_05_09.
const TimestampLayout = "02_01_06_15_04_05"

// Uploader publishes a finished file under key.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

type Writer struct {
	Dir      string
	Encoding table.Encoding
	Uploader Uploader

	stamp  string
	logger *slog.Logger
}

// NewWriter fixes the timestamp once so every file of a run shares it.
func NewWriter(dir string, enc table.Encoding, now time.Time, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		Dir:      dir,
		Encoding: enc,
		stamp:    now.Format(TimestampLayout),
		logger:   logger,
	}
}

func (w *Writer) Stamp() string {
	return w.stamp
}

// Path returns <dir>/<sub>/<stamp>_<name><ext>.
func (w *Writer) Path(sub, name, ext string) string {
	return filepath.Join(w.Dir, sub, fmt.Sprintf("%s_%s%s", w.stamp, name, ext))
}

func (w *Writer) WriteTable(ctx context.Context, sub, name string, t *table.Table) (string, error) {
	p := w.Path(sub, name, ".csv")
	err := w.create(p, func(f io.Writer) error {
		return table.WriteCSV(f, t, w.Encoding)
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	w.logger.Info("wrote file", "path", p, "rows", t.Len())
	return p, w.Publish(ctx, p)
}

// WriteRaw stores a downloaded body unchanged.
func (w *Writer) WriteRaw(ctx context.Context, sub, name, ext string, body io.Reader) (string, error) {
	p := w.Path(sub, name, ext)
	err := w.create(p, func(f io.Writer) error {
		_, err := io.Copy(f, body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	w.logger.Info("wrote file", "path", p)
	return p, w.Publish(ctx, p)
}

// Publish uploads a file under <dir>-relative key when an uploader is set.
func (w *Writer) Publish(ctx context.Context, p string) error {
	if w.Uploader == nil {
		return nil
	}
	rel, err := filepath.Rel(w.Dir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(p)
	}
	key := path.Clean(filepath.ToSlash(rel))

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := w.Uploader.Upload(ctx, key, f); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	w.logger.Info("uploaded file", "key", key)
	return nil
}

func (w *Writer) create(p string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
