// Package modelhttp is the shared HTTP plumbing for remote model
// capabilities: retry with exponential backoff and mapping of transport
// failures onto the typed model errors.
package modelhttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-scribe-go/internal/types"
)

var httpClient = &http.Client{Timeout: 90 * time.Second}

// StatusError carries the HTTP status through the retry loop so callers can
// map it onto the error taxonomy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Classify maps a transport failure onto the typed model errors for the
// named capability.
func Classify(capability string, err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden || se.Code == http.StatusNotFound:
			return &types.ModelUnavailableError{Capability: capability, Err: err}
		case se.Code == http.StatusTooManyRequests || se.Code == http.StatusInsufficientStorage ||
			strings.Contains(strings.ToLower(se.Body), "out of memory"):
			return &types.ResourceExhaustedError{Capability: capability, Err: err}
		}
		return fmt.Errorf("%s request failed: %w", capability, err)
	}
	// Connection-level failure: the capability is unreachable.
	return &types.ModelUnavailableError{Capability: capability, Err: err}
}

// DoJSON performs the request with exponential backoff on 5xx, decoding the
// final body into target. 4xx responses are returned immediately. The
// request body, if any, is buffered so retries can replay it.
func DoJSON(req *http.Request, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var bodyCopy []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		bodyCopy = b
	}

	var lastErr error
	op := func() error {
		if bodyCopy != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyCopy))
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(body)}
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(body)}
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, req.Context())); err != nil {
		return lastErr
	}
	return nil
}
