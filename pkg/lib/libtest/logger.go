// Package libtest holds test doubles shared by the pkg/lib packages.
package libtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kubescape/go-logger/helpers"
)

// Entry is one recorded log call.
type Entry struct {
	Level   string
	Message string
	Details map[string]string
}

// Logger records Info and Error calls so tests can assert on observable signals.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Logger) Info(msg string, details ...helpers.IDetails) {
	l.record("info", msg, details)
}

func (l *Logger) Error(msg string, details ...helpers.IDetails) {
	l.record("error", msg, details)
}

func (l *Logger) record(level, msg string, details []helpers.IDetails) {
	e := Entry{Level: level, Message: msg, Details: make(map[string]string, len(details))}
	for _, d := range details {
		e.Details[d.Key()] = fmt.Sprint(d.Value())
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Contains reports whether any entry at level has a message containing substr.
func (l *Logger) Contains(level, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
