// Package config loads silverkey settings.
//
// Settings are resolved in three layers, later layers winning:
//
//	defaults -> config.toml -> SILVERKEY_* environment variables
//
// The default file is $XDG_CONFIG_HOME/silverkey/config.toml. Keymap files
// (JSON, TOML or YAML) and Lua scripts named by the settings are loaded by
// a Reloader, which can also watch them and re-apply changes to a running
// engine.
package config
