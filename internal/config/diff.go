package config

import "slices"

// ConfigDiff describes what changed between two configs. Only fields that can
// be safely hot-reloaded are tracked; everything else needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DetectorChanged is set when any boundary threshold or lexicon differs.
	// New thresholds take effect on the next session switch.
	DetectorChanged bool

	// VocabularyChanged is set when the correction term list differs.
	VocabularyChanged bool
}

// Any reports whether the diff carries at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.DetectorChanged || d.VocabularyChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Detector.MinQuestionWords != new.Detector.MinQuestionWords ||
		old.Detector.SpeechThreshold != new.Detector.SpeechThreshold ||
		old.Detector.MinSilenceSeconds != new.Detector.MinSilenceSeconds ||
		old.Detector.MaxBufferWords != new.Detector.MaxBufferWords ||
		!slices.Equal(old.Detector.Openers, new.Detector.Openers) ||
		!slices.Equal(old.Detector.Closers, new.Detector.Closers) {
		d.DetectorChanged = true
	}

	if !slices.Equal(old.Vocabulary, new.Vocabulary) {
		d.VocabularyChanged = true
	}

	return d
}
