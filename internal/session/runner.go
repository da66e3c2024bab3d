package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/earshot-ai/earshot/internal/answer"
	"github.com/earshot-ai/earshot/internal/boundary"
	"github.com/earshot-ai/earshot/internal/observe"
	"github.com/earshot-ai/earshot/internal/resilience"
	"github.com/earshot-ai/earshot/internal/transcript"
	"github.com/earshot-ai/earshot/pkg/audio"
	"github.com/earshot-ai/earshot/pkg/provider/stt"
)

// RunnerConfig wires a [Runner].
type RunnerConfig struct {
	// Transcriber turns audio chunks into text. Required.
	Transcriber stt.Transcriber

	// Generator produces replies to committed questions. Required.
	Generator *answer.Generator

	// Corrector fixes vocabulary in transcript deltas. Optional.
	Corrector *transcript.Corrector

	// Publisher receives runner events. Optional.
	Publisher Publisher

	// Metrics records pipeline instrumentation. Optional.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Detector configures boundary detection. A zero MinSilenceSeconds is
	// derived from ChunkDuration: 60% of a chunk, floored at half a second,
	// so one quiet chunk ends a question regardless of chunk sizing.
	Detector boundary.Config

	// ChunkDuration is the nominal duration of incoming chunks.
	ChunkDuration time.Duration

	// Retry bounds transcription retries.
	Retry resilience.RetryConfig
}

// switchRequest asks the loop to change sessions; done is closed once the
// switch has been applied.
type switchRequest struct {
	session *Session
	done    chan struct{}
}

// Runner drives the live loop for one session at a time. All per-chunk
// processing happens on the Run goroutine, so the detector and delta
// extractor need no locking. Session switches are funneled through the same
// loop to keep state changes ordered with chunk processing.
type Runner struct {
	cfg      RunnerConfig
	logger   *slog.Logger
	detector *boundary.Detector
	delta    *boundary.DeltaExtractor
	switches chan switchRequest

	// mu guards current, which is also read from API goroutines.
	mu      sync.Mutex
	current *Session
}

// NewRunner builds a Runner that starts on initial. initial must not be nil.
func NewRunner(cfg RunnerConfig, initial *Session) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Detector.MinSilenceSeconds == 0 && cfg.ChunkDuration > 0 {
		cfg.Detector.MinSilenceSeconds = max(cfg.ChunkDuration.Seconds()*0.6, 0.5)
	}

	return &Runner{
		cfg:      cfg,
		logger:   cfg.Logger,
		detector: boundary.NewDetector(cfg.Detector),
		delta:    boundary.NewDeltaExtractor(initial.LastTranscript()),
		current:  initial,
		switches: make(chan switchRequest),
	}
}

// Session returns the session the runner is currently serving.
func (r *Runner) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Runner) setCurrent(sess *Session) {
	r.mu.Lock()
	r.current = sess
	r.mu.Unlock()
}

// Switch moves the runner to sess, saving the old session's transcript
// position and resetting the detector. It blocks until the loop has applied
// the switch or ctx is cancelled. Calling Switch before Run has started
// blocks until Run picks the request up.
func (r *Runner) Switch(ctx context.Context, sess *Session) error {
	req := switchRequest{session: sess, done: make(chan struct{})}
	select {
	case r.switches <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes chunks until ctx is cancelled or the channel closes. It is the
// only goroutine that touches the detector and delta extractor.
func (r *Runner) Run(ctx context.Context, chunks <-chan audio.Chunk) error {
	r.publish(EventStatus, "listening")
	defer r.publish(EventStatus, "idle")

	for {
		select {
		case <-ctx.Done():
			r.saveTranscriptPosition()
			return ctx.Err()
		case req := <-r.switches:
			r.applySwitch(req)
		case chunk, ok := <-chunks:
			if !ok {
				r.saveTranscriptPosition()
				return nil
			}
			r.process(ctx, chunk)
		}
	}
}

func (r *Runner) applySwitch(req switchRequest) {
	r.saveTranscriptPosition()
	r.setCurrent(req.session)
	r.detector.Reset()
	r.delta.Reset(req.session.LastTranscript())
	r.logger.Info("switched session", "session_id", req.session.ID, "title", req.session.Title)
	close(req.done)
}

// saveTranscriptPosition persists the delta extractor state so the session
// can resume without re-emitting old text.
func (r *Runner) saveTranscriptPosition() {
	if sess := r.Session(); sess != nil {
		sess.SetLastTranscript(r.delta.Previous())
	}
}

func (r *Runner) process(ctx context.Context, chunk audio.Chunk) {
	ctx, span := observe.StartTranscription(ctx, r.Session().ID)
	defer span.End()

	start := time.Now()
	text, err := resilience.RetryValue(ctx, r.cfg.Retry, func(ctx context.Context) (string, error) {
		return r.cfg.Transcriber.Transcribe(ctx, chunk)
	})
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.RecordChunk(ctx, "error")
		}
		r.logger.WarnContext(ctx, "transcription failed, dropping chunk",
			"session_id", r.Session().ID, "error", err)
		r.publish(EventStatus, "error")
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordChunk(ctx, "ok")
	}

	addition := r.delta.ExtractNew(text)
	if addition != "" && r.cfg.Corrector != nil {
		corrected, corrections := r.cfg.Corrector.Correct(addition)
		for _, c := range corrections {
			r.logger.DebugContext(ctx, "vocabulary correction",
				"heard", c.Heard, "applied", c.Applied, "confidence", c.Confidence)
		}
		addition = corrected
	}
	if addition != "" {
		r.publish(EventTranscriptDelta, addition)
	}

	question, committed := r.detector.Observe(chunk.RMS, chunk.Seconds(), addition)
	if committed {
		r.handleCommit(ctx, question)
	}
}

func (r *Runner) handleCommit(ctx context.Context, question string) {
	sess := r.Session()
	ctx, span := observe.StartAnswer(ctx, sess.ID, len(question))
	defer span.End()
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordCommit(ctx)
	}
	r.logger.InfoContext(ctx, "question committed",
		"session_id", sess.ID, "chars", len(question))
	r.publish(EventQuestionCommitted, question)
	sess.RecordQuestion(question, time.Now().UTC())

	// The generator appends the question itself, so pass the history from
	// before this turn.
	prior := sess.History.Messages()
	sess.History.Append("user", question)

	r.publish(EventStatus, "thinking")
	start := time.Now()
	reply, err := r.cfg.Generator.Generate(ctx, sess.ID, prior, question)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.AnswerDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "answer generation failed",
			"session_id", sess.ID, "error", err)
		r.publish(EventStatus, "error")
		return
	}
	if reply != "" {
		sess.History.Append("assistant", reply)
		sess.RecordAnswer(reply)
		r.publish(EventAnswerReady, reply)
	}
	r.publish(EventStatus, "listening")
}

func (r *Runner) publish(typ EventType, text string) {
	if r.cfg.Publisher == nil {
		return
	}
	sessionID := ""
	if sess := r.Session(); sess != nil {
		sessionID = sess.ID
	}
	r.cfg.Publisher.Publish(Event{
		Type:      typ,
		SessionID: sessionID,
		Text:      text,
		At:        time.Now().UTC(),
	})
}

// Validate reports configuration errors before Run is started.
func (cfg RunnerConfig) Validate() error {
	if cfg.Transcriber == nil {
		return fmt.Errorf("session: runner requires a transcriber")
	}
	if cfg.Generator == nil {
		return fmt.Errorf("session: runner requires an answer generator")
	}
	return nil
}
