package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"voice-scribe-go/internal/asr"
	"voice-scribe-go/internal/audio"
	"voice-scribe-go/internal/config"
	"voice-scribe-go/internal/diarize"
	"voice-scribe-go/internal/ingest"
	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/pipeline"
	"voice-scribe-go/internal/storage"
	"voice-scribe-go/internal/types"
)

const maxUploadBytes = 256 << 20

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-scribe-go").Info("starting service")

	cfg := config.FromEnv()

	pipe, records, err := buildPipeline(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IngestDir != "" {
		watcher := ingest.NewWatcher(cfg.IngestDir, pipe)
		go func() {
			if err := watcher.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("ingest watcher stopped")
			}
		}()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "process")
		reqLog.Info("process request received")

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("audio")
		if err != nil {
			reqLog.WithError(err).Warn("missing audio upload")
			http.Error(w, "missing audio file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			reqLog.WithError(err).Warn("upload read failed")
			http.Error(w, "failed to read upload", http.StatusBadRequest)
			return
		}

		format := r.FormValue("format")
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
		}

		timeout := cfg.PipelineTimeout
		if t := r.URL.Query().Get("timeout_sec"); t != "" {
			var sec int
			if _, err := fmt.Sscanf(t, "%d", &sec); err == nil && sec > 0 {
				timeout = time.Duration(sec) * time.Second
			}
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		start := time.Now()
		res, err := pipe.Process(ctx, pipeline.Request{
			Audio:    data,
			Format:   format,
			Filename: filepath.Base(header.Filename),
		})
		reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			reqLog.WithError(err).Warn("pipeline returned error")
			writeError(w, err)
			return
		}

		outcome, err := res.WaitStorage(ctx)
		if err != nil {
			// Transcript is complete; only the storage confirmation timed out.
			res.Warnings = append(res.Warnings, fmt.Sprintf("storage outcome not confirmed: %v", err))
		}

		reqLog.WithField("conversation_id", res.Transcript.ConversationID).Info("pipeline finished")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"transcript":      res.Transcript,
			"stats":           res.Stats,
			"report_path":     res.ReportPath,
			"storage_outcome": outcome,
			"warnings":        append(res.Warnings, outcome.Warnings...),
		})
	})

	mux.HandleFunc("PATCH /conversations/{id}/speakers", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "speakers")
		if records == nil {
			http.Error(w, "record store not configured", http.StatusNotFound)
			return
		}
		var names map[int]string
		if err := json.NewDecoder(r.Body).Decode(&names); err != nil || len(names) == 0 {
			http.Error(w, "expected JSON object of speaker_id to name", http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")
		if err := records.UpdateSpeakerNames(id, names); err != nil {
			reqLog.WithError(err).Warn("speaker name update failed")
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		reqLog.WithField("conversation_id", id).Info("speaker names updated")
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// buildPipeline wires adapters and backends from configuration. Object
// storage becomes primary only when its credentials are fully present; the
// local filesystem is always available as the fallback.
func buildPipeline(cfg config.Config) (*pipeline.Pipeline, *storage.RecordStore, error) {
	log := logger.Component("bootstrap")

	local := storage.NewLocalBackend(cfg.StorageDir)
	var primary storage.Backend = local
	var fallback storage.Backend
	if cfg.ObjectStorageConfigured() {
		object, err := storage.NewObjectBackend(storage.ObjectConfig{
			Endpoint:  cfg.ObjectEndpoint,
			AccessKey: cfg.ObjectAccessKey,
			SecretKey: cfg.ObjectSecretKey,
			Bucket:    cfg.ObjectBucket,
			Secure:    cfg.ObjectSecure,
		})
		if err != nil {
			return nil, nil, err
		}
		primary, fallback = object, local
		log.WithField("endpoint", cfg.ObjectEndpoint).Info("object storage selected as primary")
	} else {
		log.Info("object storage not configured, using local filesystem")
	}

	var records *storage.RecordStore
	if cfg.DatabasePath != "" {
		var err error
		records, err = storage.OpenRecordStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.DatabasePath).Info("transcript record store open")
	}

	coordinator := storage.NewCoordinator(primary, fallback, records)

	opts := []pipeline.Option{pipeline.WithStorage(coordinator)}
	if cfg.ReportDir != "" {
		opts = append(opts, pipeline.WithReportDir(cfg.ReportDir))
	}
	if cfg.TranscribeFallbackModel != "" {
		opts = append(opts, pipeline.WithLowResourceTranscriber(
			asr.NewClient(cfg.TranscribeURL, cfg.TranscribeFallbackModel)))
	}

	pipe := pipeline.New(
		audio.NewLoader(),
		asr.NewClient(cfg.TranscribeURL, cfg.TranscribeModel),
		diarize.NewClient(cfg.DiarizeURL),
		opts...,
	)
	return pipe, records, nil
}

// writeError maps the pipeline error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		unsupported *types.UnsupportedFormatError
		empty       *types.EmptyAudioError
		unavailable *types.ModelUnavailableError
		exhausted   *types.ResourceExhaustedError
	)
	status := http.StatusInternalServerError
	kind := "internal"
	switch {
	case errors.As(err, &unsupported):
		status, kind = http.StatusBadRequest, "unsupported_format"
	case errors.As(err, &empty):
		status, kind = http.StatusBadRequest, "empty_audio"
	case errors.As(err, &unavailable):
		status, kind = http.StatusServiceUnavailable, "model_unavailable"
	case errors.As(err, &exhausted):
		status, kind = http.StatusServiceUnavailable, "resource_exhausted"
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusGatewayTimeout, "timeout"
	}
	writeJSON(w, status, map[string]string{"error": kind, "detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
