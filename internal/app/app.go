// Package app wires silverkey together: settings, logging, the input
// engine, actions, Lua scripts, keymaps and a front end. The front end is
// a tcell or Bubble Tea inspector on a terminal, or a JSON-lines replay
// of recorded transitions.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/dshills/silverkey/internal/action"
	"github.com/dshills/silverkey/internal/config"
	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/macro"
	"github.com/dshills/silverkey/internal/logger"
)

// feedSize is the number of recent outcomes the inspector keeps.
const feedSize = 12

// Options configures the application. Non-empty fields override the
// loaded settings.
type Options struct {
	// ConfigPath is the configuration file. Empty uses the default path.
	ConfigPath string

	// UI is "tcell", "tea" or "replay".
	UI string

	// Debug turns on diagnostic snapshots.
	Debug bool

	// LogLevel, LogFormat and LogPath override the log settings.
	LogLevel  string
	LogFormat string
	LogPath   string

	// Keymaps and Scripts are loaded in addition to the configured ones.
	Keymaps []string
	Scripts []string

	// NoWatch disables reloading files on change.
	NoWatch bool

	// Record saves every handled transition to this file on shutdown.
	Record string

	// Play is a recording fed into a terminal front end at its original
	// pace.
	Play string

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Application is the central coordinator for all silverkey components.
type Application struct {
	mu sync.Mutex

	opts     Options
	settings *config.Settings
	mode     string

	log      *logger.Logger
	engine   *input.Engine
	actions  *action.Registry
	scripts  []*action.Script
	reloader *config.Reloader
	recorder *macro.Recorder
	playback []key.Event

	initOrder []string
	stopObs   []func()

	feed    []string
	changed chan struct{}
	running atomic.Bool
	quit    atomic.Bool
	cancel  context.CancelCauseFunc
}

// New creates an application. Every component is started; on failure the
// ones already started are shut down again.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	a := &Application{opts: opts, changed: make(chan struct{}, 1)}
	if err := newBootstrapper(a).bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// Engine returns the input engine.
func (a *Application) Engine() *input.Engine {
	return a.engine
}

// Settings returns the active settings.
func (a *Application) Settings() *config.Settings {
	if a.reloader != nil {
		return a.reloader.Settings()
	}
	return a.settings
}

// Actions returns the action registry.
func (a *Application) Actions() *action.Registry {
	return a.actions
}

// Mode returns the selected front end.
func (a *Application) Mode() string {
	return a.mode
}

// Feed returns the most recent outcome descriptions, oldest first.
func (a *Application) Feed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.feed...)
}

func (a *Application) pushFeed(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feed = append(a.feed, line)
	if len(a.feed) > feedSize {
		a.feed = a.feed[len(a.feed)-feedSize:]
	}
	a.notify()
}

// notify wakes a front end waiting on Changed without blocking.
func (a *Application) notify() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

// Changed is signaled when the feed changes. Signals coalesce.
func (a *Application) Changed() <-chan struct{} {
	return a.changed
}

// feedWriter turns writes into feed lines; the print action uses it while
// a terminal front end owns the screen.
type feedWriter struct{ a *Application }

func (w feedWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.a.pushFeed("> " + line)
	}
	return len(p), nil
}

// Quit asks a running front end to stop.
func (a *Application) Quit() {
	a.quit.Store(true)
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel(ErrQuit)
	}
}

// Run runs the selected front end until it ends, the context is canceled
// or Quit is called. A requested quit returns nil.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}()

	a.log.Info("running", "ui", a.mode, "engine", a.engine.ID())

	var err error
	switch a.mode {
	case config.UIReplay:
		err = a.Replay(ctx, a.opts.Stdin, a.opts.Stdout)
	case config.UITcell:
		err = a.runTcell(ctx)
	case config.UITea:
		err = a.runTea(ctx)
	default:
		err = ErrUnknownUI
	}

	if a.quit.Load() || errors.Is(context.Cause(ctx), ErrQuit) {
		return nil
	}
	return err
}

// startPlayback feeds the Play recording into the engine until it ends or
// ctx is done. The returned function stops it.
func (a *Application) startPlayback(ctx context.Context) (stop func()) {
	if len(a.playback) == 0 {
		return func() {}
	}
	p := macro.NewPlayer(macro.WithSpeed(1))
	if err := a.engine.BindSource(p); err != nil {
		a.log.Warn("playback not started", "err", err)
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		outs, err := p.Play(ctx, a.playback)
		if err != nil && ctx.Err() == nil {
			a.log.Warn("playback stopped", "err", err)
		}
		a.pushFeed(fmt.Sprintf("playback finished: %d transitions", len(outs)))
	}()

	return func() {
		p.Cancel()
		<-done
		_ = a.engine.UnbindSource(p)
	}
}

// Shutdown stops watching files, closes scripts and detaches sources.
// It is safe to call more than once.
func (a *Application) Shutdown() {
	newBootstrapper(a).cleanup()
}

// selectMode picks the front end: an explicit choice, else tcell when
// stdin is a terminal, else replay.
func selectMode(explicit string, stdin io.Reader) string {
	if explicit != config.UIAuto {
		return explicit
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return config.UITcell
	}
	return config.UIReplay
}

// LoadSettings loads the configuration named by opts and applies the
// overrides in opts.
func LoadSettings(opts Options) (*config.Settings, error) {
	s, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := applyOptions(s, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// applyOptions overlays command line options on loaded settings.
func applyOptions(s *config.Settings, opts Options) error {
	if opts.Debug {
		s.Input.Debug = true
	}
	if opts.LogLevel != "" {
		s.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		s.Log.Format = opts.LogFormat
	}
	if opts.LogPath != "" {
		s.Log.Path = opts.LogPath
	}
	if opts.UI != "" {
		s.UI.Mode = opts.UI
	}
	if opts.NoWatch {
		s.Keymaps.Watch = false
	}
	for _, p := range opts.Keymaps {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		s.Keymaps.Files = append(s.Keymaps.Files, abs)
	}
	for _, p := range opts.Scripts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		s.Scripts.Files = append(s.Scripts.Files, abs)
	}
	return s.Validate()
}

// describe formats an outcome for the feed.
func describe(ev key.Event, out input.Outcome) string {
	var sb strings.Builder
	sb.WriteString(out.Type.String())
	if out.Label != "" {
		sb.WriteByte(' ')
		sb.WriteString(out.Label)
	}
	if out.Binding != "" {
		sb.WriteString(" -> ")
		sb.WriteString(out.Fired.String())
		sb.WriteByte(' ')
		sb.WriteString(out.Binding)
		if out.Action != "" {
			sb.WriteString(" (" + out.Action + ")")
		}
	}
	if out.PreventDefault {
		sb.WriteString(" [prevented]")
	}
	if out.Uncancelable {
		sb.WriteString(" [uncancelable]")
	}
	if ev.Repeat {
		sb.WriteString(" [repeat]")
	}
	return sb.String()
}
