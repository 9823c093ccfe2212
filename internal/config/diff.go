package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// storage changes require a restart and are deliberately absent.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ParserChanged is true if gap tolerance or speaker folding changed.
	// Already-stored analyses keep their original segmentation; only new
	// parses pick up the tuning.
	ParserChanged bool

	// AnalyticsChanged is true if the back-and-forth threshold changed.
	AnalyticsChanged bool

	// EntityLabelsChanged is true if the NER label set changed.
	EntityLabelsChanged bool
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ParserChanged || d.AnalyticsChanged || d.EntityLabelsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Parser != new.Parser {
		d.ParserChanged = true
	}

	if old.Analytics.BackAndForthThreshold != new.Analytics.BackAndForthThreshold {
		d.AnalyticsChanged = true
	}

	if !slices.Equal(old.Report.EntityLabels, new.Report.EntityLabels) {
		d.EntityLabelsChanged = true
	}

	return d
}
