package config

import "testing"

func baseConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Vocabulary = []string{"Kubernetes"}
	return cfg
}

func TestDiffNoChanges(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	if d := Diff(old, new); d.Any() {
		t.Errorf("diff of identical configs = %+v", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("diff = %+v", d)
	}
	if d.DetectorChanged || d.VocabularyChanged {
		t.Errorf("unrelated changes flagged: %+v", d)
	}
}

func TestDiffDetector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold", func(c *Config) { c.Detector.SpeechThreshold = 0.05 }},
		{"silence", func(c *Config) { c.Detector.MinSilenceSeconds = 1.5 }},
		{"openers", func(c *Config) { c.Detector.Openers = []string{"whereabouts"} }},
		{"closers", func(c *Config) { c.Detector.Closers = []string{"innit"} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old := baseConfig()
			new := baseConfig()
			tc.mutate(new)
			if d := Diff(old, new); !d.DetectorChanged {
				t.Errorf("detector change not flagged: %+v", d)
			}
		})
	}
}

func TestDiffVocabulary(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	new.Vocabulary = append(new.Vocabulary, "Terraform")

	if d := Diff(old, new); !d.VocabularyChanged {
		t.Errorf("vocabulary change not flagged: %+v", d)
	}
}
