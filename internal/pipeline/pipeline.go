// Package pipeline orchestrates one conversation through decode,
// transcription, diarization, speaker matching, aggregation, stats and
// persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voice-scribe-go/internal/aggregator"
	"voice-scribe-go/internal/asr"
	"voice-scribe-go/internal/audio"
	"voice-scribe-go/internal/diarize"
	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/match"
	"voice-scribe-go/internal/report"
	"voice-scribe-go/internal/stats"
	"voice-scribe-go/internal/storage"
	"voice-scribe-go/internal/types"
)

// Pipeline holds the shared, read-only collaborators. Adapters are loaded
// once at startup and safe for concurrent in-flight runs; every Process call
// is a pure pipeline over its own sample buffer.
type Pipeline struct {
	loader      *audio.Loader
	transcriber asr.Transcriber
	// lowResource, when non-nil, is the one-shot retry path taken after a
	// ResourceExhaustedError from the main transcriber.
	lowResource asr.Transcriber
	diarizer    diarize.Diarizer
	store       *storage.Coordinator
	reportDir   string
	log         *logrus.Entry
}

// Option tweaks optional pipeline collaborators.
type Option func(*Pipeline)

// WithStorage wires the persistence coordinator. Without it, results are
// returned in memory only.
func WithStorage(c *storage.Coordinator) Option {
	return func(p *Pipeline) { p.store = c }
}

// WithLowResourceTranscriber configures the retry path for resource
// exhaustion.
func WithLowResourceTranscriber(t asr.Transcriber) Option {
	return func(p *Pipeline) { p.lowResource = t }
}

// WithReportDir enables the XLSX speaker-stats report.
func WithReportDir(dir string) Option {
	return func(p *Pipeline) { p.reportDir = dir }
}

func New(loader *audio.Loader, t asr.Transcriber, d diarize.Diarizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:      loader,
		transcriber: t,
		diarizer:    d,
		log:         logger.Component("pipeline"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Request is one audio upload to process. Format is the declared container
// (file extension, optional); Filename is the original upload name used in
// the persisted layout.
type Request struct {
	Audio    []byte
	Format   string
	Filename string
}

// Result decouples "processing succeeded" from "durable storage succeeded":
// Transcript and Stats are always complete when Process returns nil error,
// while the storage outcome arrives asynchronously via WaitStorage.
type Result struct {
	Transcript *types.DiarizedTranscript `json:"transcript"`
	Stats      []types.SpeakerStats      `json:"stats"`
	ReportPath string                    `json:"report_path,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`

	storageCh <-chan storage.Outcome
}

// WaitStorage blocks until the persistence writes finish (or ctx expires)
// and returns their outcome. When no storage is configured the outcome
// stays Idle.
func (r *Result) WaitStorage(ctx context.Context) (storage.Outcome, error) {
	select {
	case out := <-r.storageCh:
		return out, nil
	case <-ctx.Done():
		return storage.Outcome{}, ctx.Err()
	}
}

// Process runs the full pipeline. Input-validation and transcription
// failures are fatal and typed; diarization, storage and report failures
// degrade into warnings on the result.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := p.log

	buf, err := p.loader.Load(ctx, req.Audio, req.Format)
	if err != nil {
		return nil, err
	}
	log = log.WithField("duration_s", buf.Duration())

	var warnings []string

	// Transcription and diarization share the immutable buffer and have no
	// dependency on each other; run them concurrently and join both before
	// matching.
	type trResult struct {
		segs []types.TranscriptSegment
		err  error
	}
	type diResult struct {
		turns    []types.SpeakerTurn
		degraded bool
		err      error
	}
	trCh := make(chan trResult, 1)
	diCh := make(chan diResult, 1)
	go func() {
		segs, err := p.transcriber.Transcribe(ctx, buf)
		trCh <- trResult{segs, err}
	}()
	go func() {
		turns, degraded, err := p.diarizer.Diarize(ctx, buf)
		diCh <- diResult{turns, degraded, err}
	}()

	var tr trResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("pipeline timeout during transcription: %w", ctx.Err())
	case tr = <-trCh:
	}
	var di diResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("pipeline timeout during diarization: %w", ctx.Err())
	case di = <-diCh:
	}

	segs, warnings, err := p.resolveTranscription(ctx, buf, tr.segs, tr.err, warnings)
	if err != nil {
		return nil, err
	}

	turns, degraded := di.turns, di.degraded
	if di.err != nil {
		// Diarization failure is never fatal: degrade to a single
		// pseudo-speaker covering the whole file.
		log.WithError(di.err).Warn("diarization failed, degrading to single speaker")
		warnings = append(warnings, fmt.Sprintf("diarization degraded: %v", di.err))
		turns, degraded = diarize.SingleSpeaker(buf.Duration()), true
	} else if degraded {
		warnings = append(warnings, "diarization degraded: single pseudo-speaker")
	}

	matched, speakerCount := match.Match(segs, turns)
	transcript := aggregator.Build(uuid.New().String(), matched, speakerCount, buf.Duration(), time.Now())
	speakerStats := stats.Compute(transcript)

	res := &Result{
		Transcript: transcript,
		Stats:      speakerStats,
		Warnings:   warnings,
	}

	if p.reportDir != "" {
		path, err := report.Write(p.reportDir, transcript, speakerStats)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("stats report: %v", err))
		} else {
			res.ReportPath = path
		}
	}

	res.storageCh = p.persist(ctx, req, transcript)

	log.WithFields(logrus.Fields{
		"conversation_id": transcript.ConversationID,
		"segments":        len(transcript.Segments),
		"speakers":        transcript.SpeakerCount,
		"degraded":        degraded,
		"elapsed_ms":      time.Since(start).Milliseconds(),
	}).Info("pipeline complete")
	return res, nil
}

// resolveTranscription applies the error policy for the transcription leg:
// ModelUnavailable is fatal (no text is meaningless output), ResourceExhausted
// is retried once on the low-resource path when one is configured.
func (p *Pipeline) resolveTranscription(ctx context.Context, buf *audio.SampleBuffer, segs []types.TranscriptSegment, trErr error, warnings []string) ([]types.TranscriptSegment, []string, error) {
	if trErr == nil {
		return segs, warnings, nil
	}

	var exhausted *types.ResourceExhaustedError
	if errors.As(trErr, &exhausted) && p.lowResource != nil {
		p.log.WithError(trErr).Warn("transcription resources exhausted, retrying on low-resource path")
		retried, err := p.lowResource.Transcribe(ctx, buf)
		if err == nil {
			warnings = append(warnings, fmt.Sprintf("transcription retried on low-resource path after: %v", trErr))
			return retried, warnings, nil
		}
		return nil, warnings, err
	}
	return nil, warnings, trErr
}

// persist kicks off the storage writes without blocking the caller; the
// returned channel delivers the outcome exactly once. The save runs on a
// detached context so an impatient HTTP caller does not abort a write that
// is already in flight.
func (p *Pipeline) persist(ctx context.Context, req Request, t *types.DiarizedTranscript) <-chan storage.Outcome {
	ch := make(chan storage.Outcome, 1)
	if p.store == nil {
		ch <- storage.Outcome{State: storage.Idle}
		return ch
	}
	saveCtx := context.WithoutCancel(ctx)
	go func() {
		ch <- p.store.Save(saveCtx, storage.Request{
			ConversationID: t.ConversationID,
			Filename:       req.Filename,
			Audio:          req.Audio,
			TranscriptText: aggregator.Render(t),
			Duration:       t.TotalDuration,
			SpeakerCount:   t.SpeakerCount,
			SpeakerNames:   t.SpeakerNames,
			UploadedAt:     t.CreatedAt,
		})
	}()
	return ch
}
