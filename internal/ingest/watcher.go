// Package ingest feeds audio files dropped into a watched directory through
// the pipeline.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/pipeline"
)

var audioExts = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".ogg": true,
	".m4a": true, ".aac": true, ".wma": true,
}

// Watcher processes every supported audio file created in Dir.
type Watcher struct {
	dir  string
	pipe *pipeline.Pipeline
	log  *logrus.Entry

	// settle is how long a new file must keep a stable size before it is
	// read; uploads via scp/rsync arrive in chunks.
	settle time.Duration
}

func NewWatcher(dir string, p *pipeline.Pipeline) *Watcher {
	return &Watcher{
		dir:    dir,
		pipe:   p,
		log:    logger.Component("ingest").WithField("dir", dir),
		settle: 2 * time.Second,
	}
}

// Run watches the directory until ctx is cancelled. Files already present at
// startup are left alone; only newly created files are ingested.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching for dropped audio")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if !audioExts[ext] {
				continue
			}
			go w.ingest(ctx, ev.Name, ext)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path, ext string) {
	log := w.log.WithField("file", filepath.Base(path))

	if !w.waitSettled(ctx, path) {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("read dropped file failed")
		return
	}

	res, err := w.pipe.Process(ctx, pipeline.Request{
		Audio:    data,
		Format:   strings.TrimPrefix(ext, "."),
		Filename: filepath.Base(path),
	})
	if err != nil {
		log.WithError(err).Error("ingest processing failed")
		return
	}
	outcome, err := res.WaitStorage(ctx)
	if err != nil {
		log.WithError(err).Warn("storage wait interrupted")
		return
	}
	log.WithFields(logrus.Fields{
		"conversation_id": res.Transcript.ConversationID,
		"speakers":        res.Transcript.SpeakerCount,
		"storage_state":   outcome.State.String(),
	}).Info("dropped file processed")
}

// waitSettled polls until the file size stops changing.
func (w *Watcher) waitSettled(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			fi, err := os.Stat(path)
			if err != nil {
				return false
			}
			if fi.Size() == lastSize && fi.Size() > 0 {
				return true
			}
			lastSize = fi.Size()
		}
	}
}
