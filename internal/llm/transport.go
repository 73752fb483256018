package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
)

const (
	bodyPreviewLimit      = 512
	toolCallsPreviewLimit = 240
	httpStatusErrorFormat = "%s: http error %d: %s"
)

// transport holds what every backend kind shares: the request timeout, the
// optional throttle and the HTTP client.
type transport struct {
	name       string
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
}

func newTransport(configuration config.Backend, httpClient *http.Client) transport {
	shared := transport{
		name:       configuration.Name,
		apiKey:     configuration.ResolvedAPIKey(),
		timeout:    configuration.Timeout(),
		httpClient: httpClient,
	}
	if configuration.RequestsPerMinute > 0 {
		shared.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(configuration.RequestsPerMinute)), 1)
	}
	return shared
}

// call waits for the throttle, then runs send under the request timeout. An
// expired request deadline becomes a *failure.TimeoutError.
func (t transport) call(ctx context.Context, send func(ctx context.Context) (string, error)) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", failure.Wrap(failure.ErrBackend, err, "%s: wait for rate limit", t.name)
		}
	}
	requestContext, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	started := time.Now()
	text, err := send(requestContext)
	if err == nil {
		return text, nil
	}
	if ctx.Err() == nil && errors.Is(requestContext.Err(), context.DeadlineExceeded) {
		return "", &failure.TimeoutError{Backend: t.name, Configured: t.timeout, Elapsed: time.Since(started)}
	}
	return "", err
}

// postJSON sends payload and returns the body of a 2xx response.
func (t transport) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	requestBytes, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, failure.Wrap(failure.ErrBackend, marshalErr, "%s: encode request", t.name)
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return nil, failure.Wrap(failure.ErrBackend, buildErr, "%s: build request", t.name)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	httpResponse, httpErr := t.httpClient.Do(httpRequest)
	if httpErr != nil {
		return nil, failure.Wrap(failure.ErrBackend, httpErr, "%s: post %s", t.name, endpoint)
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return nil, failure.Wrap(failure.ErrBackend, readErr, "%s: read response", t.name)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, failure.Newf(failure.ErrBackend, httpStatusErrorFormat, t.name, httpResponse.StatusCode, failure.Preview(string(bodyBytes), bodyPreviewLimit))
	}
	return bodyBytes, nil
}
