package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kubescape/go-logger/helpers"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
)

const (
	DefaultNameMatch    = "PathOfExile"
	DefaultCmdlineMatch = "Path of Exile 2"
	DefaultPollInterval = time.Second
)

// ErrNotFound means no running process matched.
var ErrNotFound = errors.New("target process not found")

// Matcher selects the target: the display name must contain Name and the
// first command-line argument must contain Cmdline.
type Matcher struct {
	Name    string
	Cmdline string
}

// DefaultMatcher matches the Path of Exile 2 client.
func DefaultMatcher() Matcher {
	return Matcher{Name: DefaultNameMatch, Cmdline: DefaultCmdlineMatch}
}

func (m Matcher) Matches(c Candidate) bool {
	if !strings.Contains(c.Name, m.Name) {
		return false
	}
	if len(c.Cmdline) == 0 {
		return false
	}
	return strings.Contains(c.Cmdline[0], m.Cmdline)
}

// Locator finds the first process accepted by its Matcher.
type Locator struct {
	source Source
	match  Matcher
	log    lib.Logger
}

func NewLocator(source Source, match Matcher, log lib.Logger) *Locator {
	return &Locator{source: source, match: match, log: lib.OrNop(log)}
}

// Find scans once. It returns ErrNotFound when nothing matches.
func (l *Locator) Find() (*Handle, error) {
	candidates, err := l.source.Candidates()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	for _, c := range candidates {
		if l.match.Matches(c) {
			return NewHandle(c, l.source), nil
		}
	}
	return nil, ErrNotFound
}

// Wait polls Find every interval until a match is found and confirmed alive.
// It only gives up when ctx is done.
func (l *Locator) Wait(ctx context.Context, interval time.Duration) (*Handle, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	l.log.Info("waiting for target process to launch",
		helpers.String("name", l.match.Name),
		helpers.String("cmdline", l.match.Cmdline))

	var found *Handle
	operation := func() error {
		h, err := l.Find()
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				l.log.Error("process scan failed", helpers.Error(err))
			}
			return err
		}
		if !h.Alive() {
			return ErrNotFound
		}
		found = h
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return found, nil
}
