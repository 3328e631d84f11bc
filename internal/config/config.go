package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/silverkey/internal/config/loader"
	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/history"
	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/logger"
)

// FileName is the configuration file name inside the config directory.
const FileName = "config.toml"

// Settings is the complete silverkey configuration.
type Settings struct {
	Input   InputSettings  `toml:"input"`
	Log     LogSettings    `toml:"log"`
	Keymaps KeymapSettings `toml:"keymaps"`
	Scripts ScriptSettings `toml:"scripts"`
	UI      UISettings     `toml:"ui"`
	Tables  TableSettings  `toml:"tables"`

	// Path is the file the settings were read from, if any.
	Path string `toml:"-"`
}

// InputSettings mirror input.Config.
type InputSettings struct {
	Delimiter   string   `toml:"delimiter"`
	Throttle    Duration `toml:"throttle"`
	Timeout     Duration `toml:"timeout"`
	Debug       bool     `toml:"debug"`
	ResetOnBlur bool     `toml:"reset_on_blur"`
}

// LogSettings select the log level, format and destination. An empty level
// disables logging.
type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// KeymapSettings name keymap files and directories to load.
type KeymapSettings struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
	Watch bool     `toml:"watch"`
}

// ScriptSettings name Lua scripts to run at startup.
type ScriptSettings struct {
	Files   []string `toml:"files"`
	Timeout Duration `toml:"timeout"`
}

// UISettings select the front end.
type UISettings struct {
	// Mode is "tcell", "tea" or "replay". Empty picks tcell on a terminal
	// and replay otherwise.
	Mode string `toml:"mode"`
}

// TableSettings override entries of the key tables. Codes are decimal
// legacy key codes.
type TableSettings struct {
	Aliases map[string]string `toml:"aliases,omitempty"`
	Codes   map[string]string `toml:"codes,omitempty"`
	Shifted map[string]string `toml:"shifted,omitempty"`
}

// UI modes.
const (
	UIAuto   = ""
	UITcell  = "tcell"
	UITea    = "tea"
	UIReplay = "replay"
)

// Duration is a time.Duration written either as milliseconds (1000,
// "1.5") or in Go syntax ("1s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := input.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w %q", err, text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Input: InputSettings{
			Delimiter: key.DefaultDelimiter,
			Timeout:   Duration(history.DefaultTimeout),
		},
		Log: LogSettings{
			Format: "text",
		},
		Keymaps: KeymapSettings{
			Watch: true,
		},
		Scripts: ScriptSettings{
			Timeout: Duration(2 * time.Second),
		},
	}
}

// Dir returns the silverkey configuration directory.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "silverkey"), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads defaults, then the TOML file at path, then the environment.
// A missing file is not an error. An empty path selects DefaultPath and,
// when the file has no keymap directories, the "keymaps" directory next
// to it.
func Load(path string) (*Settings, error) {
	return load(path, loader.NewTOMLLoader(), loader.NewEnvLoader(loader.DefaultEnvPrefix))
}

func load(path string, tl *loader.TOMLLoader, env *loader.EnvLoader) (*Settings, error) {
	implicit := path == ""
	if implicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	s := Defaults()
	found, err := tl.DecodeFile(path, s)
	if err != nil {
		return nil, err
	}
	if found {
		s.Path = path
	}
	if implicit && len(s.Keymaps.Dirs) == 0 {
		s.Keymaps.Dirs = []string{filepath.Join(filepath.Dir(path), "keymaps")}
	}

	if err := s.ApplyEnv(env.Load()); err != nil {
		return nil, err
	}
	s.resolvePaths(filepath.Dir(path))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes settings from TOML on top of the defaults. Relative paths
// are left as written.
func Parse(r io.Reader) (*Settings, error) {
	s := Defaults()
	if err := loader.NewTOMLLoader().DecodeReader(r, s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode writes s as TOML.
func (s *Settings) Encode(w io.Writer) error {
	return loader.Encode(w, s)
}

// envSetters apply one environment value to a setting path.
var envSetters = map[string]func(s *Settings, v string) error{
	"input.delimiter":     func(s *Settings, v string) error { s.Input.Delimiter = v; return nil },
	"input.throttle":      func(s *Settings, v string) error { return s.Input.Throttle.UnmarshalText([]byte(v)) },
	"input.timeout":       func(s *Settings, v string) error { return s.Input.Timeout.UnmarshalText([]byte(v)) },
	"input.debug":         func(s *Settings, v string) error { return setBool(&s.Input.Debug, v) },
	"input.reset_on_blur": func(s *Settings, v string) error { return setBool(&s.Input.ResetOnBlur, v) },
	"log.level":           func(s *Settings, v string) error { s.Log.Level = v; return nil },
	"log.format":          func(s *Settings, v string) error { s.Log.Format = v; return nil },
	"log.path":            func(s *Settings, v string) error { s.Log.Path = v; return nil },
	"keymaps.dirs":        func(s *Settings, v string) error { s.Keymaps.Dirs = loader.ParseList(v); return nil },
	"keymaps.files":       func(s *Settings, v string) error { s.Keymaps.Files = loader.ParseList(v); return nil },
	"keymaps.watch":       func(s *Settings, v string) error { return setBool(&s.Keymaps.Watch, v) },
	"scripts.files":       func(s *Settings, v string) error { s.Scripts.Files = loader.ParseList(v); return nil },
	"scripts.timeout":     func(s *Settings, v string) error { return s.Scripts.Timeout.UnmarshalText([]byte(v)) },
	"ui.mode":             func(s *Settings, v string) error { s.UI.Mode = v; return nil },
}

func setBool(dst *bool, v string) error {
	b, ok := loader.ParseBool(v)
	if !ok {
		return fmt.Errorf("%w: not a boolean", ErrInvalidSetting)
	}
	*dst = b
	return nil
}

// ApplyEnv applies values keyed by setting path, as returned by
// loader.EnvLoader.Load.
func (s *Settings) ApplyEnv(values map[string]string) error {
	for _, path := range loader.Paths(values) {
		v := values[path]
		set, ok := envSetters[path]
		if !ok {
			return settingError(path, "", ErrUnknownSetting)
		}
		if err := set(s, v); err != nil {
			return settingError(path, v, err)
		}
	}
	return nil
}

// resolvePaths makes keymap, script and log paths absolute relative to
// base and expands a leading "~".
func (s *Settings) resolvePaths(base string) {
	fix := func(p string) string {
		if p == "" {
			return p
		}
		p = os.ExpandEnv(p)
		if p == "~" || strings.HasPrefix(p, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, p[1:])
			}
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		return filepath.Clean(p)
	}
	for i, p := range s.Keymaps.Dirs {
		s.Keymaps.Dirs[i] = fix(p)
	}
	for i, p := range s.Keymaps.Files {
		s.Keymaps.Files[i] = fix(p)
	}
	for i, p := range s.Scripts.Files {
		s.Scripts.Files[i] = fix(p)
	}
	s.Log.Path = fix(s.Log.Path)
}

// Validate checks values that decoding cannot.
func (s *Settings) Validate() error {
	if err := s.EngineConfig().Validate(); err != nil {
		return settingError("input", "", fmt.Errorf("%w: %w", ErrInvalidSetting, err))
	}
	if s.Log.Level != "" {
		if _, err := logger.ParseLevel(s.Log.Level); err != nil {
			return settingError("log.level", s.Log.Level, err)
		}
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		return settingError("log.format", s.Log.Format, logger.ErrInvalidLogFormat)
	}
	switch s.UI.Mode {
	case UIAuto, UITcell, UITea, UIReplay:
	default:
		return settingError("ui.mode", s.UI.Mode, fmt.Errorf("%w: use tcell, tea or replay", ErrInvalidSetting))
	}
	if s.Scripts.Timeout < 0 {
		return settingError("scripts.timeout", s.Scripts.Timeout.Std().String(), ErrInvalidSetting)
	}
	if _, err := s.KeyTables(); err != nil {
		return err
	}
	return nil
}

// EngineConfig returns the engine configuration.
func (s *Settings) EngineConfig() input.Config {
	return input.Config{
		Delimiter:   s.Input.Delimiter,
		Throttle:    s.Input.Throttle.Std(),
		Timeout:     s.Input.Timeout.Std(),
		Debug:       s.Input.Debug,
		ResetOnBlur: s.Input.ResetOnBlur,
	}
}

// KeyTables returns the default tables with the overrides applied.
func (s *Settings) KeyTables() (*key.Tables, error) {
	base := key.DefaultTables()
	if len(s.Tables.Aliases) == 0 && len(s.Tables.Codes) == 0 && len(s.Tables.Shifted) == 0 {
		return base, nil
	}

	aliases := make(map[string]key.Key, len(s.Tables.Aliases))
	for label, k := range s.Tables.Aliases {
		if label == "" || k == "" {
			return nil, settingError("tables.aliases."+label, k, ErrInvalidSetting)
		}
		aliases[label] = key.Key(k)
	}
	codes, err := parseCodes("tables.codes", s.Tables.Codes)
	if err != nil {
		return nil, err
	}
	shifted, err := parseCodes("tables.shifted", s.Tables.Shifted)
	if err != nil {
		return nil, err
	}
	return base.Merge(aliases, codes, shifted), nil
}

func parseCodes(section string, in map[string]string) (map[int]key.Key, error) {
	out := make(map[int]key.Key, len(in))
	for code, k := range in {
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil || n < 0 || k == "" {
			return nil, settingError(section+"."+code, k, ErrInvalidSetting)
		}
		out[n] = key.Key(k)
	}
	return out, nil
}

// Apply pushes the input settings and key tables into a running engine.
func (s *Settings) Apply(e *input.Engine) error {
	tables, err := s.KeyTables()
	if err != nil {
		return err
	}
	if err := e.SetDelimiter(s.Input.Delimiter); err != nil {
		return err
	}
	if err := e.SetThrottle(s.Input.Throttle.Std()); err != nil {
		return err
	}
	if err := e.SetTimeout(s.Input.Timeout.Std()); err != nil {
		return err
	}
	e.DebugMode(s.Input.Debug)
	e.SetResetOnBlur(s.Input.ResetOnBlur)
	e.SetTables(tables)
	return nil
}

// EngineOptions returns the engine options implied by s.
func (s *Settings) EngineOptions() ([]input.Option, error) {
	tables, err := s.KeyTables()
	if err != nil {
		return nil, err
	}
	return []input.Option{input.WithTables(tables)}, nil
}
