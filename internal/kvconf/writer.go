package kvconf

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Writer emits configuration lines in the order they are set. The first
// write error is sticky and reported by Flush.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Comment writes a "# text" line.
func (w *Writer) Comment(text string) {
	w.printf("# %s\n", text)
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.printf("\n")
}

// Set writes "key = value". Values that would not survive Parse unchanged
// are quoted.
func (w *Writer) Set(key string, value interface{}) {
	v := fmt.Sprint(value)
	if needsQuote(v) {
		v = strconv.Quote(v)
	}
	w.printf("%s = %s\n", key, v)
}

// Flush writes buffered data and returns the first error encountered.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func needsQuote(v string) bool {
	return v == "" || v != strings.TrimSpace(v) || v[0] == '"' || strings.ContainsAny(v, "\n\r")
}

// Save writes c to path in sorted key order. The file is created through
// github.com/grailbio/base/file, so a local file appears only once it is
// completely written.
func Save(ctx context.Context, path string, c Config) error {
	return WriteFile(ctx, path, func(w *Writer) {
		for _, k := range c.Keys() {
			w.Set(k, c[k])
		}
	})
}

// WriteFile creates path and fills it with the lines emitted by fill.
func WriteFile(ctx context.Context, path string, fill func(w *Writer)) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, fmt.Sprintf("kvconf: create %s", path))
	}
	w := NewWriter(f.Writer(ctx))
	fill(w)
	if err := w.Flush(); err != nil {
		f.Discard(ctx)
		return errors.E(err, fmt.Sprintf("kvconf: write %s", path))
	}
	if err := f.Close(ctx); err != nil {
		return errors.E(err, fmt.Sprintf("kvconf: close %s", path))
	}
	return nil
}

func isOSNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}
