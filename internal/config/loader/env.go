package loader

import (
	"os"
	"sort"
	"strings"
)

// DefaultEnvPrefix is the prefix of silverkey environment variables.
const DefaultEnvPrefix = "SILVERKEY_"

// EnvLoader collects prefixed environment variables as dotted setting
// paths: SILVERKEY_INPUT_RESET_ON_BLUR becomes "input.reset_on_blur".
type EnvLoader struct {
	prefix  string            // e.g. "SILVERKEY_"
	mapping map[string]string // env var -> setting path
	environ func() []string
}

// NewEnvLoader creates a loader for the given prefix, which should include
// the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// NewEnvLoaderFrom creates a loader reading from a fixed environment
// instead of the process environment.
func NewEnvLoaderFrom(prefix string, environ []string) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.environ = func() []string { return environ }
	return l
}

// defaultEnvMapping holds the shorthand variables.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "DEBUG":    "input.debug",
		prefix + "THROTTLE": "input.throttle",
		prefix + "TIMEOUT":  "input.timeout",
		prefix + "LOG":      "log.level",
		prefix + "UI":       "ui.mode",
	}
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load returns the prefixed variables keyed by setting path. Empty values
// are kept: an empty variable is still an explicit setting.
func (l *EnvLoader) Load() map[string]string {
	out := make(map[string]string)
	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if path, ok := l.mapping[name]; ok {
			out[path] = value
			continue
		}
		if path := l.envToPath(name); path != "" {
			out[path] = value
		}
	}
	return out
}

// Paths returns the sorted setting paths of Load.
func Paths(values map[string]string) []string {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// envToPath converts SILVERKEY_KEYMAPS_DIRS to keymaps.dirs. The first
// segment is the section; the rest is the snake_case setting name.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, setting, ok := strings.Cut(name, "_")
	if !ok || section == "" || setting == "" {
		return ""
	}
	return section + "." + setting
}

// ParseBool accepts the usual spellings of a boolean.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off", "":
		return false, true
	}
	return false, false
}

// ParseList splits a path-list-separated or comma-separated value.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
