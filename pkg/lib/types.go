package lib

import "github.com/kubescape/go-logger/helpers"

// LoadState is the inferred phase of the monitored game.
type LoadState int

const (
	LoadStateNormal LoadState = iota
	LoadStateLoading
)

func (s LoadState) String() string {
	switch s {
	case LoadStateLoading:
		return "LOADING"
	default:
		return "NORMAL"
	}
}

// Classification is the verdict for a single log line.
type Classification int

const (
	ClassificationNone Classification = iota
	ClassificationEnterLoading
	ClassificationExitLoading
)

func (c Classification) String() string {
	switch c {
	case ClassificationEnterLoading:
		return "ENTER_LOADING"
	case ClassificationExitLoading:
		return "EXIT_LOADING"
	default:
		return "NONE"
	}
}

// Logger is the subset of helpers.ILogger the core packages need.
// logger.L() satisfies it; tests pass a recorder.
type Logger interface {
	Info(msg string, details ...helpers.IDetails)
	Error(msg string, details ...helpers.IDetails)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...helpers.IDetails) {}
func (nopLogger) Error(string, ...helpers.IDetails) {}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
