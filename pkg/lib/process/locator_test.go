package process

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/libtest"
)

// fakeSource serves a scripted sequence of process tables.
type fakeSource struct {
	mu    sync.Mutex
	scans [][]Candidate
	calls int
	err   error
	alive map[int]bool
}

func (f *fakeSource) Candidates() ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scans) == 0 {
		return nil, nil
	}
	scan := f.scans[0]
	if len(f.scans) > 1 {
		f.scans = f.scans[1:]
	}
	return scan, nil
}

func (f *fakeSource) Alive(pid int, _ uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var gameCandidate = Candidate{
	PID:     4242,
	Name:    "PathOfExileSteam",
	Cmdline: []string{`C:\Games\Path of Exile 2\PathOfExileSteam.exe`, "--nologo"},
	Exe:     "/games/Path of Exile 2/PathOfExileSteam.exe",
}

func TestMatcher(t *testing.T) {
	m := DefaultMatcher()
	assert.True(t, m.Matches(gameCandidate))
	assert.False(t, m.Matches(Candidate{Name: "PathOfExile", Cmdline: []string{"Path of Exile 1"}}))
	assert.False(t, m.Matches(Candidate{Name: "launcher", Cmdline: []string{"Path of Exile 2"}}))
	assert.False(t, m.Matches(Candidate{Name: "PathOfExile"}), "empty cmdline never matches")
	// only the first argument is inspected
	assert.False(t, m.Matches(Candidate{Name: "PathOfExile", Cmdline: []string{"wine", "Path of Exile 2"}}))
}

func TestFind_FirstMatchWins(t *testing.T) {
	second := gameCandidate
	second.PID = 9999
	src := &fakeSource{scans: [][]Candidate{{
		{PID: 1, Name: "init", Cmdline: []string{"/sbin/init"}},
		gameCandidate,
		second,
	}}}
	h, err := NewLocator(src, DefaultMatcher(), nil).Find()
	require.NoError(t, err)
	assert.Equal(t, 4242, h.PID())
	assert.Equal(t, "/games/Path of Exile 2", h.Dir())
}

func TestFind_NotFound(t *testing.T) {
	src := &fakeSource{scans: [][]Candidate{{{PID: 1, Name: "init", Cmdline: []string{"/sbin/init"}}}}}
	_, err := NewLocator(src, DefaultMatcher(), nil).Find()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLocator(&fakeSource{err: boom}, DefaultMatcher(), nil).Find()
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWait_PollsUntilFound(t *testing.T) {
	src := &fakeSource{
		scans: [][]Candidate{nil, nil, {gameCandidate}},
		alive: map[int]bool{4242: true},
	}
	log := &libtest.Logger{}
	h, err := NewLocator(src, DefaultMatcher(), log).Wait(context.Background(), 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 4242, h.PID())
	assert.True(t, h.Alive())
	assert.Equal(t, 3, src.Calls())
	assert.True(t, log.Contains("info", "waiting for target process"))
}

func TestWait_RequiresLiveness(t *testing.T) {
	src := &fakeSource{scans: [][]Candidate{{gameCandidate}}, alive: map[int]bool{}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewLocator(src, DefaultMatcher(), nil).Wait(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, src.Calls(), 1)
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewLocator(&fakeSource{}, DefaultMatcher(), nil).Wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_NilIsNotAlive(t *testing.T) {
	var h *Handle
	assert.False(t, h.Alive())
	assert.Equal(t, "", (&Handle{}).Dir())
}
