package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

// UpstreamError is returned by StreamClient.Do when the upstream responds
// with a non-2xx status before any streaming begins. It carries the raw
// status and body for logging; callers must not expose the body to users.
type UpstreamError struct {
	Failure domain.UpstreamFailure
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Failure.StatusCode)
}

// StreamClient issues adapter-built requests and reads the streaming
// response line by line, handing each line to the adapter's parser.
type StreamClient struct {
	httpClient *http.Client
}

// ClientOption configures the stream client.
type ClientOption func(*StreamClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *StreamClient) {
		c.httpClient = httpClient
	}
}

// NewStreamClient creates a stream client.
func NewStreamClient(opts ...ClientOption) *StreamClient {
	c := &StreamClient{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the upstream call and returns a channel of parsed events.
// The channel closes when the upstream stream ends, a done sentinel is
// parsed, or ctx is cancelled. A non-2xx response surfaces as an
// *UpstreamError before any event is delivered, so callers can still
// retry against another provider.
func (c *StreamClient) Do(ctx context.Context, spec *domain.HTTPRequestSpec, adapter Adapter) (<-chan domain.ProviderEvent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.URL, bytes.NewReader(spec.Body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	for k, v := range spec.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send upstream request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, &UpstreamError{Failure: domain.UpstreamFailure{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}}
	}

	out := make(chan domain.ProviderEvent)
	go c.readStream(ctx, resp.Body, adapter, out)
	return out, nil
}

func (c *StreamClient) readStream(ctx context.Context, body io.ReadCloser, adapter Adapter, out chan<- domain.ProviderEvent) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		event, ok := adapter.ParseEvent(scanner.Text())
		if !ok {
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return
		}

		if event.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case out <- domain.ProviderEvent{Err: &domain.UpstreamFailure{Body: err.Error()}}:
		case <-ctx.Done():
		}
	}
}
