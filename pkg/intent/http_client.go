package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// HTTPExtractor calls an external language-understanding service over HTTP.
type HTTPExtractor struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPExtractor creates an extractor against the service at url. Every
// call is bounded by timeout regardless of the caller's context.
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		url:     url,
		timeout: timeout,
		client:  &http.Client{},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, prompt string, inputType models.InputType) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	requestBody, err := json.Marshal(map[string]string{
		"prompt":     prompt,
		"input_type": string(inputType),
	})
	if err != nil {
		return Intent{}, errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/extract", bytes.NewBuffer(requestBody))
	if err != nil {
		return Intent{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are indistinguishable to the
		// caller; both mean the upstream is unavailable right now.
		return Intent{}, errors.Wrapf(ErrUnavailable, "extract call failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Intent{}, errors.Wrapf(ErrUnavailable, "extract call returned status %d", resp.StatusCode)
	}

	var out Intent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Intent{}, errors.Wrap(ErrUnavailable, "malformed extract response")
	}
	if len(out.Steps) == 0 {
		return Intent{}, errors.Wrap(ErrUnavailable, "extract response contained no steps")
	}
	return out, nil
}
