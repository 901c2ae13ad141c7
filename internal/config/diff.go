package config

import "reflect"

// ConfigDiff describes what changed between two configs. Hot-reloadable
// sections are flagged individually; provider changes always require a
// restart because engines are constructed once at startup.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged means the session defaults changed. Applies to new
	// connections only; established sessions keep their negotiated values.
	SessionChanged bool

	// DialogueChanged means the system prompt changed.
	DialogueChanged bool

	// BoostingChanged means the boosting file, DSN, or domain changed.
	BoostingChanged bool

	// ProvidersChanged means the engine lists changed; a restart is needed
	// for this to take effect.
	ProvidersChanged bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Session != new.Session {
		d.SessionChanged = true
	}
	if old.Dialogue != new.Dialogue {
		d.DialogueChanged = true
	}
	if old.Boosting != new.Boosting {
		d.BoostingChanged = true
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.ProvidersChanged = true
	}

	return d
}
