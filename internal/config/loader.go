package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"openai"},
	"llm":        {"openai", "anthropic", "gemini", "ollama", "groq", "mistral", "deepseek"},
	"embeddings": {"openai"},
}

// LoadEnv loads environment variables from the given dotenv files. With no
// arguments it loads ".env" when present; a missing default file is not an
// error, a missing named file is.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	for _, fb := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", fb.Name)
	}
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required; nothing can transcribe audio without it"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required; questions cannot be answered without it"))
	}

	// Audio
	if cfg.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is below the 8000 Hz minimum", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; valid values: 1, 2", cfg.Audio.Channels))
	}
	if cfg.Audio.ChunkSeconds < 0.5 || cfg.Audio.ChunkSeconds > 30 {
		errs = append(errs, fmt.Errorf("audio.chunk_seconds %.2f is out of range [0.5, 30]", cfg.Audio.ChunkSeconds))
	}

	// Detector
	if cfg.Detector.MinQuestionWords < 0 {
		errs = append(errs, fmt.Errorf("detector.min_question_words %d must not be negative", cfg.Detector.MinQuestionWords))
	}
	if cfg.Detector.SpeechThreshold < 0 || cfg.Detector.SpeechThreshold > 1 {
		errs = append(errs, fmt.Errorf("detector.speech_threshold %.4f is out of range [0, 1]", cfg.Detector.SpeechThreshold))
	}
	if cfg.Detector.MinSilenceSeconds < 0 {
		errs = append(errs, fmt.Errorf("detector.min_silence_seconds %.2f must not be negative", cfg.Detector.MinSilenceSeconds))
	}
	if cfg.Detector.MaxBufferWords < 0 {
		errs = append(errs, fmt.Errorf("detector.max_buffer_words %d must not be negative", cfg.Detector.MaxBufferWords))
	}

	// Session
	if cfg.Session.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("session.history_limit %d must not be negative", cfg.Session.HistoryLimit))
	}

	// Knowledge
	if cfg.Knowledge.TopK < 0 {
		errs = append(errs, fmt.Errorf("knowledge.top_k %d must not be negative", cfg.Knowledge.TopK))
	}
	if cfg.Knowledge.ChunkLength < 100 {
		errs = append(errs, fmt.Errorf("knowledge.chunk_length %d is below the 100 character minimum", cfg.Knowledge.ChunkLength))
	}
	if cfg.Knowledge.ChunkOverlap < 0 || cfg.Knowledge.ChunkOverlap >= cfg.Knowledge.ChunkLength {
		errs = append(errs, fmt.Errorf("knowledge.chunk_overlap %d must be in [0, chunk_length)", cfg.Knowledge.ChunkOverlap))
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Knowledge.EmbeddingDimensions <= 0 && cfg.Knowledge.PostgresDSN != "" {
		slog.Warn("knowledge.embedding_dimensions is not set; the postgres store will default to 1536")
	}
	if cfg.Knowledge.PostgresDSN == "" && len(cfg.Knowledge.Documents) > 0 {
		slog.Warn("knowledge.postgres_dsn is empty; ingested documents will not survive a restart")
	}
	if len(cfg.Knowledge.Documents) > 0 && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("knowledge.documents is set but providers.embeddings is not configured"))
	}

	// Importer
	if cfg.Importer.Enabled && cfg.Importer.SyncLimit < 1 {
		errs = append(errs, fmt.Errorf("importer.sync_limit %d must be at least 1", cfg.Importer.SyncLimit))
	}
	if cfg.Importer.Enabled && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("importer.enabled requires providers.embeddings for ingestion"))
	}
	if len(cfg.Importer.ShareLinks) > 0 && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("importer.share_links is set but providers.embeddings is not configured"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
