package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// Client talks to a JSON-over-HTTP translation service.
//
// Wire contract: POST {endpoint} with
//
//	{"text": [...], "target_lang": "fr", "source_lang": "en", "format": "html"}
//
// and a bearer API key; the service answers
//
//	{"translations": [{"text": "...", "detected_source_language": "en"}, ...]}
//
// in input order. Error responses carry {"message": "..."}; rate-limit
// responses may carry a Retry-After header or a "retry_after" field
// (seconds).
type Client struct {
	endpoint string
	apiKey   string
	opts     Options

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient returns a Client for the given endpoint. The API key may be
// empty for unauthenticated services.
func NewClient(endpoint, apiKey string, opts Options) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		opts:     opts,
		httpClient: &http.Client{
			Timeout: opts.effectiveTimeout(),
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "translate",
			Timeout: opts.effectiveMaxBackoff(),
		}),
	}
}

type wireRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
	Format     string   `json:"format,omitempty"`
}

type wireResponse struct {
	Translations []struct {
		Text                   string `json:"text"`
		DetectedSourceLanguage string `json:"detected_source_language"`
	} `json:"translations"`
}

type wireError struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

// Translate submits one batch and returns translations aligned with the
// input order. Transient failures are retried with backoff; the circuit
// breaker rejects calls outright while the service is known to be down.
func (c *Client) Translate(ctx context.Context, req Request) ([]Translation, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}
	if req.TargetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return runWithRetry(ctx, c.opts, func(ctx context.Context) attemptResult[[]Translation] {
			return c.attempt(ctx, req)
		})
	})
	if err != nil {
		return nil, err
	}
	return result.([]Translation), nil
}

// attempt performs one HTTP round trip and classifies the result.
func (c *Client) attempt(ctx context.Context, req Request) attemptResult[[]Translation] {
	body, err := json.Marshal(wireRequest{
		Text:       req.Texts,
		TargetLang: req.TargetLang,
		SourceLang: req.SourceLang,
		Format:     req.Format,
	})
	if err != nil {
		return attemptResult[[]Translation]{outcome: outcomePermanent, err: fmt.Errorf("encoding request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return attemptResult[[]Translation]{outcome: outcomePermanent, err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network failures and client-side timeouts are transient.
		return attemptResult[[]Translation]{outcome: outcomeTransient, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult[[]Translation]{outcome: outcomeTransient, err: fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		translations, err := decodeTranslations(respBody, len(req.Texts))
		if err != nil {
			return attemptResult[[]Translation]{outcome: outcomePermanent, err: err}
		}
		return attemptResult[[]Translation]{outcome: outcomeSuccess, value: translations}

	case resp.StatusCode == http.StatusTooManyRequests:
		return attemptResult[[]Translation]{
			outcome:    outcomeTransient,
			err:        fmt.Errorf("rate limited: %s", serverMessage(respBody, resp.Status)),
			retryAfter: retryHint(resp, respBody),
		}

	case resp.StatusCode >= 500:
		return attemptResult[[]Translation]{
			outcome: outcomeTransient,
			err:     fmt.Errorf("server error %d: %s", resp.StatusCode, serverMessage(respBody, resp.Status)),
		}

	default:
		// Remaining 4xx-class statuses (bad request, auth failure) do not
		// heal on retry; surface the server's message directly.
		return attemptResult[[]Translation]{
			outcome: outcomePermanent,
			err:     fmt.Errorf("translation service rejected request (%d): %s", resp.StatusCode, serverMessage(respBody, resp.Status)),
		}
	}
}

func decodeTranslations(body []byte, want int) ([]Translation, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(wire.Translations) != want {
		return nil, fmt.Errorf("response has %d translations, want %d", len(wire.Translations), want)
	}
	out := make([]Translation, len(wire.Translations))
	for i, tr := range wire.Translations {
		out[i] = Translation{Text: tr.Text, DetectedSourceLang: tr.DetectedSourceLanguage}
	}
	return out, nil
}

// serverMessage extracts the human-readable error message from an error
// body, falling back to the HTTP status line.
func serverMessage(body []byte, status string) string {
	var we wireError
	if err := json.Unmarshal(body, &we); err == nil && we.Message != "" {
		return we.Message
	}
	return status
}

// retryHint reads the server's retry delay, preferring the Retry-After
// header over the body field. Zero means no hint.
func retryHint(resp *http.Response, body []byte) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	var we wireError
	if err := json.Unmarshal(body, &we); err == nil && we.RetryAfter > 0 {
		return time.Duration(we.RetryAfter * float64(time.Second))
	}
	return 0
}
