package tail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
)

func appendFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func appendString(t *testing.T, path, s string) {
	t.Helper()
	require.NoError(t, appendFile(path, s))
}

func newLogFile(t *testing.T, initial string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.txt")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))
	return path
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "/game/logs/client.txt", DefaultPollInterval)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestOpen_SkipsHistory(t *testing.T) {
	path := newLogFile(t, "old line 1\nold line 2\n")
	tl, err := Open(afero.NewOsFs(), path, DefaultPollInterval)
	require.NoError(t, err)
	defer tl.Close()

	_, ok, err := tl.TryLine()
	require.NoError(t, err)
	assert.False(t, ok, "historical content must not be emitted")

	appendString(t, path, "new line\n")
	line, ok, err := tl.TryLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new line", line)
}

func TestTryLine_HoldsPartialLine(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, DefaultPollInterval)
	require.NoError(t, err)
	defer tl.Close()

	appendString(t, path, "2024/01/15 10:30:10 1234 abcdef12 ")
	_, ok, err := tl.TryLine()
	require.NoError(t, err)
	assert.False(t, ok)

	appendString(t, path, "[INFO Client 5678] [SHADER] Delay: ON\r\n")
	line, ok, err := tl.TryLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024/01/15 10:30:10 1234 abcdef12 [INFO Client 5678] [SHADER] Delay: ON", line)
}

func TestTryLine_TolerantDecoding(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, DefaultPollInterval)
	require.NoError(t, err)
	defer tl.Close()

	appendString(t, path, "ab\xff\xfecd  \t\n")
	line, ok, err := tl.TryLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abcd", line)
}

func TestNext_AppendedAfterDelay(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, 20*time.Millisecond)
	require.NoError(t, err)
	defer tl.Close()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = appendFile(path, "2024/01/15 10:30:00 1234 abcdef12 [INFO Client 5678] [ENGINE] Init\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events := 0
	line, err := tl.Next(ctx)
	require.NoError(t, err)
	if marker.Classify(line) == lib.ClassificationEnterLoading {
		events++
	}
	assert.Equal(t, 1, events)

	_, ok, err := tl.TryLine()
	require.NoError(t, err)
	assert.False(t, ok, "no duplicate read")
}

func TestNext_ContextCancelled(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, 10*time.Millisecond)
	require.NoError(t, err)
	defer tl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = tl.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNext_ManyLinesInOrder(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, 5*time.Millisecond)
	require.NoError(t, err)
	defer tl.Close()

	appendString(t, path, "one\ntwo\nthree\n")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, want := range []string{"one", "two", "three"} {
		got, err := tl.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNextChecked_StopsBeforeConsuming(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, 5*time.Millisecond)
	require.NoError(t, err)
	defer tl.Close()

	appendString(t, path, "first\nsecond\n")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	line, err := tl.NextChecked(ctx, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	gone := errors.New("gone")
	_, err = tl.NextChecked(ctx, func() error { return gone })
	assert.ErrorIs(t, err, gone)

	line, err = tl.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", line, "a failed check must not drop the buffered line")
}

func TestNextChecked_RunsCheckWhileIdle(t *testing.T) {
	path := newLogFile(t, "")
	tl, err := Open(afero.NewOsFs(), path, 5*time.Millisecond)
	require.NoError(t, err)
	defer tl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	calls := 0
	gone := errors.New("gone")
	_, err = tl.NextChecked(ctx, func() error {
		calls++
		if calls == 3 {
			return gone
		}
		return nil
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 3, calls)
}
