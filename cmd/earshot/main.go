// Command earshot runs the live conversation assistant: it chunks PCM audio
// from stdin, transcribes it, detects question boundaries, and serves
// grounded answers plus a live event feed to the GUI over HTTP/WebSocket.
//
// Pipe 16-bit little-endian mono PCM into it, e.g.:
//
//	arecord -f S16_LE -r 16000 -c 1 -t raw | earshot -config earshot.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/earshot-ai/earshot/internal/answer"
	"github.com/earshot-ai/earshot/internal/config"
	"github.com/earshot-ai/earshot/internal/gateway"
	"github.com/earshot-ai/earshot/internal/health"
	"github.com/earshot-ai/earshot/internal/importer"
	"github.com/earshot-ai/earshot/internal/knowledge"
	"github.com/earshot-ai/earshot/internal/observe"
	"github.com/earshot-ai/earshot/internal/resilience"
	"github.com/earshot-ai/earshot/internal/session"
	"github.com/earshot-ai/earshot/internal/transcript"
	"github.com/earshot-ai/earshot/pkg/audio"
	"github.com/earshot-ai/earshot/pkg/provider/embeddings"
	oaembed "github.com/earshot-ai/earshot/pkg/provider/embeddings/openai"
	"github.com/earshot-ai/earshot/pkg/provider/llm"
	"github.com/earshot-ai/earshot/pkg/provider/llm/anyllm"
	"github.com/earshot-ai/earshot/pkg/provider/stt"
	oastt "github.com/earshot-ai/earshot/pkg/provider/stt/openai"
)

// logLevel is shared with the config watcher so log verbosity can change
// without a restart.
var logLevel = new(slog.LevelVar)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "earshot.yaml", "path to the YAML configuration file")
	envFile := flag.String("env", "", "dotenv file to load before reading the config (default: .env when present)")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		fmt.Fprintf(os.Stderr, "earshot: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "earshot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "earshot: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("earshot starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry.
	telemetryShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Providers.
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	transcriber, llmProvider, embedder, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// Knowledge store.
	store, pgStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open knowledge store", "err", err)
		return 1
	}
	if pgStore != nil {
		defer pgStore.Close()
	}

	// Ingest configured documents and imported conversations.
	if embedder != nil {
		ingestor := knowledge.NewIngestor(embedder, store,
			knowledge.WithChunking(cfg.Knowledge.ChunkLength, cfg.Knowledge.ChunkOverlap))
		if len(cfg.Knowledge.Documents) > 0 {
			count, err := ingestor.IngestFiles(ctx, "", cfg.Knowledge.Documents)
			if err != nil {
				slog.Error("document ingestion failed", "err", err)
				return 1
			}
			slog.Info("documents ingested", "files", len(cfg.Knowledge.Documents), "chunks", count)
		}
		if cfg.Importer.Enabled {
			client, err := importClientFromEnv(cfg.Importer)
			if err == nil {
				err = importConversations(ctx, client, cfg.Importer.SyncLimit, ingestor)
			}
			if err != nil {
				slog.Warn("chatgpt import failed, continuing without it", "err", err)
			}
		}
		if len(cfg.Importer.ShareLinks) > 0 {
			if err := importSharedLinks(ctx, importer.NewShareClient(), cfg.Importer.ShareLinks, ingestor); err != nil {
				slog.Warn("share link import failed, continuing without it", "err", err)
			}
		}
	}

	// Session loop.
	var corrector *transcript.Corrector
	if len(cfg.Vocabulary) > 0 {
		corrector = transcript.NewCorrector(cfg.Vocabulary)
	}

	genOpts := []answer.Option{answer.WithTopK(cfg.Knowledge.TopK)}
	if cfg.Session.SystemPrompt != "" {
		genOpts = append(genOpts, answer.WithSystemPrompt(cfg.Session.SystemPrompt))
	}
	generator := answer.NewGenerator(llmProvider, embedder, store, genOpts...)

	sessions := session.NewManager(cfg.Session.HistoryLimit)
	initial := sessions.Create("live")
	metrics.ActiveSessions.Add(ctx, 1)

	hub := gateway.NewHub(logger, metrics)
	runnerCfg := session.RunnerConfig{
		Transcriber:   transcriber,
		Generator:     generator,
		Corrector:     corrector,
		Publisher:     hub,
		Metrics:       metrics,
		Logger:        logger,
		Detector:      cfg.Detector.BoundaryConfig(),
		ChunkDuration: cfg.Audio.ChunkDuration(),
	}
	if err := runnerCfg.Validate(); err != nil {
		slog.Error("invalid runner configuration", "err", err)
		return 1
	}
	runner := session.NewRunner(runnerCfg, initial)

	// Gateway.
	checkers := []health.Checker{health.StoreChecker("knowledge", store)}
	server := gateway.NewServer(gateway.Config{
		Addr:     cfg.Server.ListenAddr,
		Hub:      hub,
		Sessions: sessions,
		Runner:   runner,
		Health:   health.New(checkers...),
		Metrics:  metrics,
		Logger:   logger,
	})

	// Config watcher for hot-reloadable settings.
	watcher, err := config.NewWatcher(*configPath, applyConfigChange)
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// Audio input.
	chunker, err := audio.NewChunker(cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.ChunkDuration())
	if err != nil {
		slog.Error("invalid audio configuration", "err", err)
		return 1
	}
	chunks := make(chan audio.Chunk, 4)

	slog.Info("ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	// A blocking stdin read would outlive cancellation, so close the file to
	// unblock it.
	stopRead := context.AfterFunc(gctx, func() { os.Stdin.Close() })
	defer stopRead()
	g.Go(func() error {
		return captureLoop(gctx, os.Stdin, chunker, chunks)
	})
	g.Go(func() error {
		if err := runner.Run(gctx, chunks); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session loop: %w", err)
		}
		return nil
	})
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the provider factories that ship with
// earshot into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oastt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oastt.WithBaseURL(entry.BaseURL))
		}
		return oastt.New(entry.ResolveAPIKey("OPENAI_API_KEY"), entry.Model, opts...)
	})

	// All any-llm backends share the same pattern: optional APIKey plus
	// optional BaseURL. ollama is a local server and needs no key.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini", "ollama", "groq", "mistral", "deepseek",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if key := entry.ResolveAPIKey(""); key != "" {
				opts = append(opts, anyllmlib.WithAPIKey(key))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.ResolveAPIKey("OPENAI_API_KEY"), entry.Model, opts...)
	})
}

// buildProviders instantiates the configured providers, stacking fallbacks
// behind circuit breakers when the config lists any.
func buildProviders(cfg *config.Config, reg *config.Registry) (stt.Transcriber, llm.Provider, embeddings.Provider, error) {
	transcriber, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if len(cfg.Providers.STTFallbacks) > 0 {
		fb := resilience.NewTranscriberFallback(transcriber, cfg.Providers.STT.Name, resilience.BreakerConfig{})
		for _, entry := range cfg.Providers.STTFallbacks {
			p, err := reg.CreateSTT(entry)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider created", "kind", "stt", "name", entry.Name, "role", "fallback")
		}
		transcriber = fb
	}

	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	if len(cfg.Providers.LLMFallbacks) > 0 {
		fb := resilience.NewLLMFallback(llmProvider, cfg.Providers.LLM.Name, resilience.BreakerConfig{})
		for _, entry := range cfg.Providers.LLMFallbacks {
			p, err := reg.CreateLLM(entry)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider created", "kind", "llm", "name", entry.Name, "role", "fallback")
		}
		llmProvider = fb
	}

	var embedder embeddings.Provider
	if cfg.Providers.Embeddings.Name != "" {
		embedder, err = reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create embeddings provider %q: %w", cfg.Providers.Embeddings.Name, err)
		}
		slog.Info("provider created", "kind", "embeddings", "name", cfg.Providers.Embeddings.Name)
	}

	return transcriber, llmProvider, embedder, nil
}

// buildStore opens the pgvector-backed store when a DSN is configured and
// falls back to the in-memory store otherwise. The *PGStore is returned
// separately so the caller can close its pool.
func buildStore(ctx context.Context, cfg *config.Config) (knowledge.Store, *knowledge.PGStore, error) {
	if cfg.Knowledge.PostgresDSN == "" {
		slog.Info("using in-memory knowledge store")
		return knowledge.NewMemStore(), nil, nil
	}

	dims := cfg.Knowledge.EmbeddingDimensions
	if dims <= 0 {
		dims = 1536
	}
	pg, err := knowledge.NewPGStore(ctx, cfg.Knowledge.PostgresDSN, dims)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using postgres knowledge store", "dimensions", dims)
	return pg, pg, nil
}

// importClientFromEnv builds the ChatGPT backend client from the configured
// environment variables.
func importClientFromEnv(cfg config.ImporterConfig) (*importer.Client, error) {
	token := os.Getenv(cfg.SessionTokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s is not set", cfg.SessionTokenEnv)
	}
	var opts []importer.Option
	if bearer := os.Getenv(cfg.BearerTokenEnv); bearer != "" {
		opts = append(opts, importer.WithBearerToken(bearer))
	}
	return importer.NewClient(token, opts...)
}

// importConversations pulls recent ChatGPT conversations and ingests them as
// shared knowledge.
func importConversations(ctx context.Context, client *importer.Client, limit int, ingestor *knowledge.Ingestor) error {
	conversations, err := client.List(ctx, limit)
	if err != nil {
		return err
	}
	imported, chunks := 0, 0
	for _, conv := range conversations {
		msgs, err := client.Fetch(ctx, conv.ID)
		if err != nil {
			slog.Warn("skipping conversation", "title", conv.Title, "err", err)
			continue
		}
		text := importer.Flatten(msgs)
		if text == "" {
			continue
		}
		n, err := ingestor.IngestText(ctx, "", "chatgpt:"+conv.Title, text)
		if err != nil {
			return err
		}
		imported++
		chunks += n
	}
	slog.Info("chatgpt conversations imported", "count", imported, "chunks", chunks)
	return nil
}

// importSharedLinks ingests public ChatGPT share links. Share pages need no
// account access, so this runs even when no session token is configured.
func importSharedLinks(ctx context.Context, client *importer.ShareClient, links []string, ingestor *knowledge.Ingestor) error {
	imported, chunks := 0, 0
	for _, link := range links {
		shared, err := client.FetchShared(ctx, link)
		if err != nil {
			slog.Warn("skipping share link", "url", link, "err", err)
			continue
		}
		text := importer.Flatten(shared.Messages)
		if text == "" {
			continue
		}
		n, err := ingestor.IngestText(ctx, "", "chatgpt-share:"+shared.Title, text)
		if err != nil {
			return err
		}
		imported++
		chunks += n
	}
	slog.Info("shared conversations imported", "count", imported, "chunks", chunks)
	return nil
}

// captureLoop reads raw PCM frames from r and feeds assembled chunks to out.
// EOF flushes the partial chunk and closes out, which ends the session loop
// cleanly.
func captureLoop(ctx context.Context, r io.Reader, chunker *audio.Chunker, out chan<- audio.Chunk) error {
	defer close(out)

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, chunk := range chunker.Push(buf[:n]) {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return nil
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				if chunk, ok := chunker.Flush(); ok {
					select {
					case out <- chunk:
					case <-ctx.Done():
					}
				}
				return nil
			}
			return fmt.Errorf("audio input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// applyConfigChange reacts to edits of the config file while running. Only
// the log level takes effect immediately; the rest is logged so the operator
// knows a restart (or session switch) is needed.
func applyConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.DetectorChanged {
		slog.Info("detector settings changed; they apply after a restart")
	}
	if d.VocabularyChanged {
		slog.Info("vocabulary changed; it applies after a restart")
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	logLevel.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
