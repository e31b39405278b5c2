// Package session ties process discovery, log tailing, marker classification
// and affinity control into one monitoring loop.
//
// The loop is a single thread of control: it polls for the process, then
// polls the log, and re-checks the target's liveness on every iteration.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kubescape/go-logger/helpers"
	"github.com/spf13/afero"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/affinity"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/events"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/process"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/tail"
)

const (
	OpRestrict = "restrict"
	OpRestore  = "restore"

	DefaultFallbackGameDir = `C:\Program Files (x86)\Grinding Gear Games\Path of Exile 2`
)

// ErrLogFileNotFound ends the session when client.txt does not exist.
var ErrLogFileNotFound = errors.New("client log not found")

var errTargetExited = errors.New("target process exited")

// Config holds the driver's tunables. Zero values select the defaults.
type Config struct {
	FallbackGameDir     string
	LogFile             string
	ProcessPollInterval time.Duration
	TailPollInterval    time.Duration
	MaxLineLength       int

	// RestoreOnExit restores full affinity when interrupted while loading.
	RestoreOnExit bool
}

// Metrics receives counters and gauges; *metrics.Recorder implements it.
type Metrics interface {
	AffinityChanged(op string)
	AffinityFailed(op string, err error)
	MarkerSeen(m marker.Marker)
	SetLoadState(s lib.LoadState)
	SetAttached(attached bool)
}

type Option func(*Driver)

// WithFs replaces the OS filesystem used to open the log.
func WithFs(fs afero.Fs) Option {
	return func(d *Driver) { d.fs = fs }
}

func WithMetrics(m Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithEvents publishes every session change to b.
func WithEvents(b *events.Broadcaster[Event]) Option {
	return func(d *Driver) { d.events = b }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(d *Driver) { d.id = id }
}

type Driver struct {
	cfg        Config
	locator    *process.Locator
	controller *affinity.Controller
	classifier marker.Classifier
	fs         afero.Fs
	log        lib.Logger
	metrics    Metrics
	events     *events.Broadcaster[Event]
	id         string

	state lib.LoadState
	pid   int
	exe   string
}

func NewDriver(cfg Config, locator *process.Locator, controller *affinity.Controller, log lib.Logger, opts ...Option) *Driver {
	if cfg.FallbackGameDir == "" {
		cfg.FallbackGameDir = DefaultFallbackGameDir
	}
	if cfg.ProcessPollInterval <= 0 {
		cfg.ProcessPollInterval = process.DefaultPollInterval
	}
	if cfg.TailPollInterval <= 0 {
		cfg.TailPollInterval = tail.DefaultPollInterval
	}
	d := &Driver{
		cfg:        cfg,
		locator:    locator,
		controller: controller,
		classifier: marker.NewClassifier(cfg.MaxLineLength),
		fs:         afero.NewOsFs(),
		log:        lib.OrNop(log),
		metrics:    nopMetrics{},
		id:         lib.NewSessionID(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State is the load state inferred from the last marker.
func (d *Driver) State() lib.LoadState { return d.state }

// Run monitors one target until it exits (nil), ctx is cancelled (ctx.Err())
// or the log cannot be read. Affinity is not restored when the target exits.
func (d *Driver) Run(ctx context.Context) error {
	target, err := d.locator.Find()
	if err != nil {
		if !errors.Is(err, process.ErrNotFound) {
			d.log.Error("process scan failed", d.details(helpers.Error(err))...)
		}
		d.publish(Event{Kind: EventWaiting})
		target, err = d.locator.Wait(ctx, d.cfg.ProcessPollInterval)
		if err != nil {
			if ctx.Err() != nil {
				d.log.Info("terminating", d.details()...)
				return ctx.Err()
			}
			return err
		}
		d.attach(target)
		// a freshly launched client starts out loading
		d.restrict(target, marker.Unmatched)
	} else {
		d.attach(target)
	}

	path := d.logPath(target)
	d.log.Info("reading client data", d.details(helpers.String("path", path))...)

	tl, err := tail.Open(d.fs, path, d.cfg.TailPollInterval)
	if err != nil {
		d.detach("log unavailable")
		if errors.Is(err, tail.ErrFileNotFound) {
			d.log.Error("client.txt not found", d.details(helpers.String("path", path))...)
			return fmt.Errorf("%w: %w", ErrLogFileNotFound, err)
		}
		d.log.Error("failed to open client log", d.details(helpers.Error(err))...)
		return err
	}
	defer tl.Close()

	return d.monitor(ctx, target, tl)
}

func (d *Driver) monitor(ctx context.Context, target *process.Handle, tl *tail.Tailer) error {
	alive := func() error {
		if !target.Alive() {
			return errTargetExited
		}
		return nil
	}

	for {
		line, err := tl.NextChecked(ctx, alive)
		switch {
		case err == nil:
			d.handleLine(target, line)
		case errors.Is(err, errTargetExited):
			d.log.Info("process terminated", d.details(helpers.Int("pid", target.PID()))...)
			d.detach("exited")
			return nil
		case ctx.Err() != nil:
			return d.interrupted(target, ctx.Err())
		default:
			d.log.Error("client log unreadable", d.details(helpers.Error(err))...)
			d.detach("log unreadable")
			return err
		}
	}
}

func (d *Driver) handleLine(target *process.Handle, line string) {
	m := d.classifier.Match(line)
	switch m.Classification() {
	case lib.ClassificationEnterLoading:
		d.metrics.MarkerSeen(m)
		d.restrict(target, m)
	case lib.ClassificationExitLoading:
		d.metrics.MarkerSeen(m)
		d.restore(target, m)
	}
}

// restrict and restore are issued on every marker, whatever the current
// state; the controller makes repeats harmless.
func (d *Driver) restrict(target *process.Handle, m marker.Marker) {
	if err := d.controller.Restrict(target); err != nil {
		d.metrics.AffinityFailed(OpRestrict, err)
	} else {
		d.metrics.AffinityChanged(OpRestrict)
	}
	d.transition(lib.LoadStateLoading, m)
}

func (d *Driver) restore(target *process.Handle, m marker.Marker) {
	if err := d.controller.Restore(target); err != nil {
		d.metrics.AffinityFailed(OpRestore, err)
	} else {
		d.metrics.AffinityChanged(OpRestore)
	}
	d.transition(lib.LoadStateNormal, m)
}

func (d *Driver) transition(to lib.LoadState, m marker.Marker) {
	if d.state == to {
		return
	}
	d.state = to
	d.metrics.SetLoadState(to)
	d.publish(Event{Kind: EventTransition, PID: d.pid, Exe: d.exe, State: to, Marker: m})
}

func (d *Driver) interrupted(target *process.Handle, cause error) error {
	d.log.Info("terminating", d.details()...)
	if d.cfg.RestoreOnExit && d.state == lib.LoadStateLoading && target.Alive() {
		d.restore(target, marker.Unmatched)
	}
	d.detach("interrupted")
	return cause
}

func (d *Driver) attach(target *process.Handle) {
	d.pid = target.PID()
	d.exe = target.Exe()
	d.log.Info("found target process", d.details(
		helpers.Int("pid", d.pid),
		helpers.String("exe", d.exe))...)
	d.metrics.SetAttached(true)
	d.publish(Event{Kind: EventAttached, PID: d.pid, Exe: d.exe, State: d.state})
}

func (d *Driver) detach(reason string) {
	d.metrics.SetAttached(false)
	d.publish(Event{Kind: EventDetached, PID: d.pid, Exe: d.exe, State: d.state, Reason: reason})
}

func (d *Driver) logPath(target *process.Handle) string {
	if d.cfg.LogFile != "" {
		return d.cfg.LogFile
	}
	dir := target.Dir()
	if dir == "" {
		dir = d.cfg.FallbackGameDir
	}
	return filepath.Join(dir, "logs", "client.txt")
}

func (d *Driver) publish(e Event) {
	if d.events == nil {
		return
	}
	e.Session = d.id
	e.Time = time.Now()
	d.events.Publish(e)
}

func (d *Driver) details(extra ...helpers.IDetails) []helpers.IDetails {
	return append([]helpers.IDetails{helpers.String("session", d.id)}, extra...)
}

type nopMetrics struct{}

func (nopMetrics) AffinityChanged(string) {}
func (nopMetrics) AffinityFailed(string, error) {}
func (nopMetrics) MarkerSeen(marker.Marker) {}
func (nopMetrics) SetLoadState(lib.LoadState) {}
func (nopMetrics) SetAttached(bool) {}
