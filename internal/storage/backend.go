// Package storage persists pipeline artifacts with a primary/fallback
// backend chain and an optional transcript record database.
package storage

import (
	"context"
	"fmt"
	"path"
	"time"
)

// Backend stores one artifact under a hierarchical key and returns the
// resulting path or URI. Keys use forward slashes on every backend.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Keys is the persisted layout for one conversation:
// {conversation_id}/{YYYY}/{MM}/{DD}/{original_filename} for audio, with
// sibling {conversation_id}_metadata.json and {conversation_id}_transcript.txt.
type Keys struct {
	Audio      string
	Transcript string
	Metadata   string
}

// LayoutKeys derives the artifact keys for a conversation saved at ts.
func LayoutKeys(conversationID, filename string, ts time.Time) Keys {
	ts = ts.UTC()
	dir := path.Join(
		conversationID,
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", int(ts.Month())),
		fmt.Sprintf("%02d", ts.Day()),
	)
	if filename == "" {
		filename = "audio"
	}
	return Keys{
		Audio:      path.Join(dir, filename),
		Transcript: path.Join(dir, conversationID+"_transcript.txt"),
		Metadata:   path.Join(dir, conversationID+"_metadata.json"),
	}
}
