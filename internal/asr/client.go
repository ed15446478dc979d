package asr

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

// Client talks to a whisper-style HTTP transcription service: multipart
// upload of a WAV payload, verbose-json segment response.
type Client struct {
	baseURL string
	model   string
	log     *logrus.Entry
}

// NewClient builds a Transcriber for the service at baseURL using model.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		log:     logger.Component("asr.client").WithField("model", model),
	}
}

type segmentResponse struct {
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// Transcribe uploads the buffer and returns ordered, non-overlapping
// segments. Segments the service returns out of order are sorted; overlaps
// are clipped against the previous segment end.
func (c *Client) Transcribe(ctx context.Context, buf *audio.SampleBuffer) ([]types.TranscriptSegment, error) {
	if c.baseURL == "" {
		return nil, &types.ModelUnavailableError{Capability: "transcription", Err: fmt.Errorf("TRANSCRIBE_URL not set")}
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(buf)); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	_ = w.WriteField("model", c.model)
	_ = w.WriteField("response_format", "verbose_json")
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp segmentResponse
	if err := modelhttp.DoJSON(req, &resp); err != nil {
		return nil, modelhttp.Classify("transcription", err)
	}

	segs := make([]types.TranscriptSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		segs = append(segs, types.TranscriptSegment{
			Start:         s.Start,
			End:           s.End,
			Text:          text,
			ASRConfidence: s.Confidence,
		})
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	kept := segs[:0]
	var prevEnd float64
	for _, s := range segs {
		if s.Start < prevEnd {
			s.Start = prevEnd
		}
		// A segment fully shadowed by its predecessor has nothing left
		// after clipping.
		if s.End <= s.Start {
			continue
		}
		kept = append(kept, s)
		prevEnd = s.End
	}
	segs = kept
	c.log.WithField("segments", len(segs)).Info("transcription complete")
	return segs, nil
}
