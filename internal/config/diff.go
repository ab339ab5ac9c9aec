package config

// ConfigDiff describes what changed between two configs. Only fields that
// are safe to apply to a running session without tearing down and
// reconstructing providers are tracked — notably not ASR/Embedding/VAD/
// Actuator selection, which require rebuilding the corresponding provider.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	MatcherChanged bool
	NewMatcher     MatcherConfig
}

// Diff compares old and new configs and returns what changed. Only tracks
// changes that are safe to apply without restarting the session.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Matcher != new.Matcher {
		d.MatcherChanged = true
		d.NewMatcher = new.Matcher
	}

	return d
}
