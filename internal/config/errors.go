package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSetting indicates an environment variable names no setting.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSetting indicates a setting value could not be used.
	ErrInvalidSetting = errors.New("invalid setting")
)

// SettingError reports the setting that failed and why.
type SettingError struct {
	Path  string
	Value string
	Err   error
}

func (e *SettingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %s=%q: %v", e.Path, e.Value, e.Err)
}

func (e *SettingError) Unwrap() error {
	return e.Err
}

func settingError(path, value string, err error) error {
	return &SettingError{Path: path, Value: value, Err: err}
}
