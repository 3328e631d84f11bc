package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader decodes TOML configuration files into structs.
type TOMLLoader struct {
	fs     FileSystem
	strict bool
}

// TOMLOption configures a TOMLLoader.
type TOMLOption func(*TOMLLoader)

// WithFS sets the file system.
func WithFS(fs FileSystem) TOMLOption {
	return func(l *TOMLLoader) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithStrict rejects keys that do not map to a struct field.
func WithStrict(strict bool) TOMLOption {
	return func(l *TOMLLoader) { l.strict = strict }
}

// NewTOMLLoader creates a strict TOML loader on the OS file system.
func NewTOMLLoader(opts ...TOMLOption) *TOMLLoader {
	l := &TOMLLoader{fs: DefaultFS(), strict: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DecodeFile decodes the file at path into v. Fields absent from the file
// keep their current values. A missing file is not an error; found reports
// whether the file existed.
func (l *TOMLLoader) DecodeFile(path string, v any) (found bool, err error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return true, l.decode(path, data, v)
}

// DecodeReader decodes TOML from r into v.
func (l *TOMLLoader) DecodeReader(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return l.decode("<reader>", data, v)
}

func (l *TOMLLoader) decode(source string, data []byte, v any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	if l.strict {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(v)
	if err == nil {
		return nil
	}

	perr := &ParseError{Path: source, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		perr.Line, perr.Column = derr.Position()
	}

	var serr *toml.StrictMissingError
	if errors.As(err, &serr) {
		keys := make([]string, 0, len(serr.Errors))
		for _, e := range serr.Errors {
			keys = append(keys, strings.Join(e.Key(), "."))
		}
		perr.Message = "unknown keys: " + strings.Join(keys, ", ")
		if len(serr.Errors) > 0 {
			perr.Line, perr.Column = serr.Errors[0].Position()
		}
	}

	return perr
}

// Encode writes v as TOML.
func Encode(w io.Writer, v any) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(v)
}
