package app

import (
	"github.com/dshills/silverkey/internal/action"
	"github.com/dshills/silverkey/internal/config"
	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/macro"
	"github.com/dshills/silverkey/internal/logger"
)

// bootstrapper handles component initialization with cleanup on failure.
type bootstrapper struct {
	app *Application
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{app: app}
}

// bootstrap initializes all components in dependency order. On failure it
// cleans up the components already initialized.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogger,
		b.initEngine,
		b.initRecording,
		b.initActions,
		b.initScripts,
		b.initKeymaps,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initConfig loads settings and applies the command line overrides.
func (b *bootstrapper) initConfig() error {
	s, err := LoadSettings(b.app.opts)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}

	b.app.settings = s
	b.app.mode = selectMode(s.UI.Mode, b.app.opts.Stdin)
	return nil
}

// initLogger logs to stderr for replay and to a session file when a
// terminal front end owns the screen.
func (b *bootstrapper) initLogger() error {
	ls := b.app.settings.Log

	var (
		l   *logger.Logger
		err error
	)
	if b.app.mode == config.UIReplay && ls.Path == "" {
		l, err = logger.New(ls.Level, ls.Format, b.app.opts.Stderr)
	} else {
		l, err = logger.Open(ls.Level, ls.Format, ls.Path)
	}
	if err != nil {
		return &InitError{Component: "logger", Err: err}
	}

	b.app.log = l
	b.app.initOrder = append(b.app.initOrder, "logger")
	if s := b.app.settings; s.Path != "" {
		l.Debug("config loaded", "path", s.Path)
	}
	return nil
}

func (b *bootstrapper) initEngine() error {
	s := b.app.settings
	opts, err := s.EngineOptions()
	if err != nil {
		return &InitError{Component: "engine", Err: err}
	}
	opts = append(opts, input.WithLogger(b.app.log.Logger))

	e, err := input.New(s.EngineConfig(), opts...)
	if err != nil {
		return &InitError{Component: "engine", Err: err}
	}

	e.ObserveWithPriority(func(ev key.Event, out input.Outcome) {
		b.app.pushFeed(describe(ev, out))
	}, input.ObserverPriorityHigh)

	b.app.engine = e
	b.app.initOrder = append(b.app.initOrder, "engine")
	return nil
}

// initRecording starts recording transitions and loads the recording to
// play, when requested.
func (b *bootstrapper) initRecording() error {
	opts := b.app.opts
	if opts.Play != "" {
		if b.app.mode == config.UIReplay {
			b.app.log.Warn("playback needs a terminal front end; ignoring", "path", opts.Play)
		} else {
			events, err := macro.Load(opts.Play)
			if err != nil {
				return &InitError{Component: "playback", Err: err}
			}
			b.app.playback = events
		}
	}

	if opts.Record == "" {
		return nil
	}
	rec := macro.NewRecorder()
	if err := rec.Start(); err != nil {
		return &InitError{Component: "recorder", Err: err}
	}
	b.app.recorder = rec
	b.app.stopObs = append(b.app.stopObs, b.app.engine.Observe(rec.Observer()))
	b.app.initOrder = append(b.app.initOrder, "recorder")
	return nil
}

// initActions registers the built-in actions plus quit.
func (b *bootstrapper) initActions() error {
	var w = b.app.opts.Stderr
	if b.app.mode != config.UIReplay {
		w = feedWriter{b.app}
	}
	r := action.NewDefaultRegistry(b.app.log.Logger, w)
	if err := r.Register("quit", func(action.Context) error {
		b.app.Quit()
		return nil
	}); err != nil {
		return &InitError{Component: "actions", Err: err}
	}

	b.app.actions = r
	return nil
}

// initScripts runs the configured Lua scripts before keymaps so that
// keymaps can name the actions they define.
func (b *bootstrapper) initScripts() error {
	s := b.app.settings
	if len(s.Scripts.Files) > 0 {
		b.app.initOrder = append(b.app.initOrder, "scripts")
	}
	for _, path := range s.Scripts.Files {
		sc := action.NewScript(b.app.actions,
			action.WithBinder(b.app.engine),
			action.WithScriptTimeout(s.Scripts.Timeout.Std()),
		)
		b.app.scripts = append(b.app.scripts, sc)
		if err := sc.DoFile(path); err != nil {
			return &InitError{Component: "script " + path, Err: err}
		}
		b.app.log.Info("script loaded", "path", path)
	}
	return nil
}

// initKeymaps installs keymap files and starts watching them. Broken files
// are logged and skipped.
func (b *bootstrapper) initKeymaps() error {
	path := b.app.opts.ConfigPath
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	r := config.NewReloader(path, b.app.settings, b.app.engine, b.app.actions.Resolver(),
		config.WithReloadLogger(b.app.log.Logger),
		config.WithLoad(func(string) (*config.Settings, error) {
			return LoadSettings(b.app.opts)
		}),
		config.OnReload(func(s *config.Settings) {
			b.app.pushFeed("settings reloaded")
		}),
	)
	if err := r.LoadKeymaps(); err != nil {
		b.app.log.Warn("keymaps failed to load", "err", err)
	}
	if err := r.Watch(); err != nil {
		b.app.log.Warn("file watching incomplete", "err", err)
	}

	b.app.reloader = r
	b.app.initOrder = append(b.app.initOrder, "keymaps")
	return nil
}

// cleanup shuts components down in reverse order.
func (b *bootstrapper) cleanup() {
	order := b.app.initOrder
	b.app.initOrder = nil
	for i := len(order) - 1; i >= 0; i-- {
		b.cleanupComponent(order[i])
	}
}

func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "keymaps":
		if err := b.app.reloader.Close(); err != nil {
			b.app.log.Warn("closing watcher", "err", err)
		}
	case "recorder":
		for _, stop := range b.app.stopObs {
			stop()
		}
		b.app.stopObs = nil
		events := b.app.recorder.Stop()
		if err := macro.Save(events, b.app.opts.Record); err != nil {
			b.app.log.Error("saving recording", "path", b.app.opts.Record, "err", err)
		} else {
			b.app.log.Info("recording saved", "path", b.app.opts.Record, "transitions", len(events))
		}
	case "scripts":
		for _, sc := range b.app.scripts {
			sc.Close()
		}
		b.app.scripts = nil
	case "engine":
		_ = b.app.engine.Close()
	case "logger":
		_ = b.app.log.Close()
	}
}
