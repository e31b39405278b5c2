// Package process finds the game process and keeps a non-owning reference to it.
package process

import (
	"path/filepath"
)

// Candidate is what one enumeration pass learned about a live process.
type Candidate struct {
	PID       int
	Name      string
	Cmdline   []string
	Exe       string
	StartTime uint64
}

// Source enumerates processes and answers liveness queries. Implementations
// skip processes that vanish or deny access while being read.
type Source interface {
	Candidates() ([]Candidate, error)
	Alive(pid int, startTime uint64) bool
}

// Handle is a weak reference to an external process. It owns nothing and
// needs no release; Alive must be consulted before acting on it.
type Handle struct {
	pid       int
	name      string
	exe       string
	startTime uint64
	source    Source
}

// NewHandle wraps a candidate discovered through source.
func NewHandle(c Candidate, source Source) *Handle {
	return &Handle{
		pid:       c.PID,
		name:      c.Name,
		exe:       c.Exe,
		startTime: c.StartTime,
		source:    source,
	}
}

func (h *Handle) PID() int { return h.pid }

func (h *Handle) Name() string { return h.name }

// Exe is the executable path, empty when it could not be read.
func (h *Handle) Exe() string { return h.exe }

// Dir returns the directory holding the executable, or "" if unknown.
func (h *Handle) Dir() string {
	if h.exe == "" {
		return ""
	}
	return filepath.Dir(h.exe)
}

// Alive reports whether the referenced process still exists. A recycled pid
// with a different start time counts as gone.
func (h *Handle) Alive() bool {
	if h == nil || h.source == nil {
		return false
	}
	return h.source.Alive(h.pid, h.startTime)
}
