package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"voice-scribe-go/internal/logger"
)

// Request carries everything the coordinator persists for one conversation.
type Request struct {
	ConversationID string
	Filename       string
	Audio          []byte
	TranscriptText string
	Duration       float64
	SpeakerCount   int
	SpeakerNames   map[int]string
	UploadedAt     time.Time
}

// Outcome reports how a save ended. A Failed outcome leaves the path fields
// empty; the pipeline result stays complete either way.
type Outcome struct {
	State          State    `json:"state"`
	FellBack       bool     `json:"fell_back,omitempty"`
	Backend        string   `json:"backend,omitempty"`
	AudioPath      string   `json:"audio_path,omitempty"`
	TranscriptPath string   `json:"transcript_path,omitempty"`
	MetadataPath   string   `json:"metadata_path,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// metadata is the sidecar JSON written next to the audio artifact.
type metadata struct {
	Duration     float64 `json:"duration"`
	SpeakerCount int     `json:"speaker_count"`
	UploadedAt   string  `json:"uploaded_at"`
}

// Coordinator drives the primary/fallback backend chain and the optional
// record database. Storage failures never abort a pipeline run; they are
// reported through the Outcome.
type Coordinator struct {
	primary  Backend
	fallback Backend
	records  *RecordStore
	log      *logrus.Entry
}

// NewCoordinator wires the backend chain. fallback may be nil or equal to
// primary, in which case no second attempt is made. records may be nil.
func NewCoordinator(primary, fallback Backend, records *RecordStore) *Coordinator {
	return &Coordinator{
		primary:  primary,
		fallback: fallback,
		records:  records,
		log:      logger.Component("storage.coordinator"),
	}
}

// Save writes the audio, transcript and metadata artifacts, falling back to
// the secondary backend once when the primary fails.
func (c *Coordinator) Save(ctx context.Context, req Request) Outcome {
	out := Outcome{State: Writing}
	log := c.log.WithField("conversation_id", req.ConversationID)

	keys := LayoutKeys(req.ConversationID, req.Filename, req.UploadedAt)
	paths, err := c.writeAll(ctx, c.primary, keys, req)
	backend := c.primary
	if err != nil {
		warn := fmt.Sprintf("%s backend failed: %v", c.primary.Name(), err)
		out.Warnings = append(out.Warnings, warn)
		log.WithError(err).WithField("backend", c.primary.Name()).Warn("primary storage write failed")

		if c.fallback == nil || c.fallback == c.primary {
			out.State = Failed
			return out
		}
		out.State = FallenBack
		out.FellBack = true
		paths, err = c.writeAll(ctx, c.fallback, keys, req)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s backend failed: %v", c.fallback.Name(), err))
			log.WithError(err).WithField("backend", c.fallback.Name()).Error("fallback storage write failed")
			out.State = Failed
			return out
		}
		backend = c.fallback
	}

	out.State = Committed
	out.Backend = backend.Name()
	out.AudioPath = paths.Audio
	out.TranscriptPath = paths.Transcript
	out.MetadataPath = paths.Metadata
	log.WithField("backend", backend.Name()).Info("artifacts committed")

	if c.records != nil {
		if err := c.insertRecord(req, out); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("record store: %v", err))
			log.WithError(err).Warn("transcript record insert failed")
		}
	}
	return out
}

// writeAll issues the three artifact writes concurrently; the artifacts
// target independent keys, so ordering does not matter. Any failure fails
// the whole backend attempt.
func (c *Coordinator) writeAll(ctx context.Context, b Backend, keys Keys, req Request) (Keys, error) {
	meta, err := json.Marshal(metadata{
		Duration:     req.Duration,
		SpeakerCount: req.SpeakerCount,
		UploadedAt:   req.UploadedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Keys{}, fmt.Errorf("encode metadata: %w", err)
	}

	type artifact struct {
		key         string
		data        []byte
		contentType string
		dest        *string
	}
	var paths Keys
	artifacts := []artifact{
		{keys.Audio, req.Audio, "application/octet-stream", &paths.Audio},
		{keys.Transcript, []byte(req.TranscriptText), "text/plain; charset=utf-8", &paths.Transcript},
		{keys.Metadata, meta, "application/json", &paths.Metadata},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, a := range artifacts {
		wg.Add(1)
		go func(a artifact) {
			defer wg.Done()
			p, err := b.Put(ctx, a.key, a.data, a.contentType)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			*a.dest = p
		}(a)
	}
	wg.Wait()

	if firstErr != nil {
		return Keys{}, firstErr
	}
	return paths, nil
}

func (c *Coordinator) insertRecord(req Request, out Outcome) error {
	names, err := json.Marshal(req.SpeakerNames)
	if err != nil {
		return fmt.Errorf("encode speaker names: %w", err)
	}
	return c.records.Insert(&TranscriptRecord{
		ConversationID: req.ConversationID,
		Backend:        out.Backend,
		AudioPath:      out.AudioPath,
		TranscriptPath: out.TranscriptPath,
		MetadataPath:   out.MetadataPath,
		Duration:       req.Duration,
		SpeakerCount:   req.SpeakerCount,
		SpeakerNames:   string(names),
	})
}
