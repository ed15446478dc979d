package diarize

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"voice-scribe-go/internal/audio"
	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/modelhttp"
	"voice-scribe-go/internal/types"
)

// Client talks to a pyannote-style HTTP diarization service. The service
// answers with anonymous speaker turns and may itself flag the result as
// degraded when it fell back to a single cluster.
type Client struct {
	baseURL string
	log     *logrus.Entry
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.Component("diarize.client"),
	}
}

type turnResponse struct {
	Degraded bool `json:"degraded"`
	Turns    []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
	} `json:"turns"`
}

// Diarize uploads the buffer and returns the detected speaker turns,
// ordered by start time.
func (c *Client) Diarize(ctx context.Context, buf *audio.SampleBuffer) ([]types.SpeakerTurn, bool, error) {
	if c.baseURL == "" {
		return nil, false, &types.ModelUnavailableError{Capability: "diarization", Err: fmt.Errorf("DIARIZE_URL not set")}
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, false, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(buf)); err != nil {
		return nil, false, fmt.Errorf("build upload: %w", err)
	}
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diarize", bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp turnResponse
	if err := modelhttp.DoJSON(req, &resp); err != nil {
		return nil, false, modelhttp.Classify("diarization", err)
	}

	turns := make([]types.SpeakerTurn, 0, len(resp.Turns))
	for _, t := range resp.Turns {
		if t.End <= t.Start {
			continue
		}
		turns = append(turns, types.SpeakerTurn{Start: t.Start, End: t.End, Label: t.Speaker})
	}
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })

	degraded := resp.Degraded
	if len(turns) == 0 {
		// No turns at all is treated as the single-speaker degraded case.
		turns = SingleSpeaker(buf.Duration())
		degraded = true
	}
	c.log.WithFields(logrus.Fields{"turns": len(turns), "degraded": degraded}).Info("diarization complete")
	return turns, degraded, nil
}
