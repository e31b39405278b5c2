// Package tail follows a growing text file from its current end.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/afero"
)

// DefaultPollInterval is how long Next sleeps when no complete line is available.
const DefaultPollInterval = 20 * time.Millisecond

// ErrFileNotFound is returned by Open when path does not exist. There is no
// retry: the file is expected to exist before tailing starts.
var ErrFileNotFound = errors.New("log file not found")

// Tailer yields lines appended to a file after it was opened.
// Truncation and rotation are not detected.
type Tailer struct {
	path   string
	file   afero.File
	reader *bufio.Reader
	poll   time.Duration

	// bytes of a line whose newline has not been written yet
	partial []byte
}

// Open opens path on fs and positions the tailer at end-of-file.
func Open(fs afero.Fs, path string, poll time.Duration) (*Tailer, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek to end of %s: %w", path, err)
	}
	return &Tailer{
		path:   path,
		file:   f,
		reader: bufio.NewReader(f),
		poll:   poll,
	}, nil
}

// Path returns the file being followed.
func (t *Tailer) Path() string { return t.path }

// PollInterval returns the sleep used between empty reads.
func (t *Tailer) PollInterval() time.Duration { return t.poll }

// TryLine returns the next complete line without waiting. ok is false when
// nothing new has been terminated yet.
func (t *Tailer) TryLine() (line string, ok bool, err error) {
	chunk, err := t.reader.ReadBytes('\n')
	t.partial = append(t.partial, chunk...)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", t.path, err)
	}
	line = normalize(t.partial)
	t.partial = t.partial[:0]
	return line, true, nil
}

// Next blocks until a complete line is available, sleeping PollInterval
// between attempts. It returns ctx.Err() once ctx is done.
func (t *Tailer) Next(ctx context.Context) (string, error) {
	return t.NextChecked(ctx, nil)
}

// NextChecked is Next with check run before every read attempt, including
// reads of already buffered lines. A non-nil error from check is returned
// as is and nothing is consumed.
func (t *Tailer) NextChecked(ctx context.Context, check func() error) (string, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if check != nil {
			if err := check(); err != nil {
				return "", err
			}
		}

		line, ok, err := t.TryLine()
		if err != nil {
			return "", err
		}
		if ok {
			return line, nil
		}

		if timer == nil {
			timer = time.NewTimer(t.poll)
		} else {
			timer.Reset(t.poll)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// Close releases the underlying file.
func (t *Tailer) Close() error {
	return t.file.Close()
}

// normalize drops invalid UTF-8 and trailing whitespace, including the newline.
func normalize(raw []byte) string {
	s := strings.ToValidUTF8(string(raw), "")
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
