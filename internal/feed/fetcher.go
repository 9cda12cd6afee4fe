package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves full snapshots from a single feed endpoint.
type Fetcher struct {
	name       string
	url        string
	decoder    Decoder
	httpClient *http.Client
	maxBody    int64
	now        func() time.Time
}

// NewFetcher creates a fetcher whose requests time out after timeout. A zero
// timeout leaves requests bounded only by the caller's context.
func NewFetcher(name, url string, decoder Decoder, timeout time.Duration) *Fetcher {
	return &Fetcher{
		name:       name,
		url:        url,
		decoder:    decoder,
		httpClient: &http.Client{Timeout: timeout},
		maxBody:    maxBodyBytes,
		now:        time.Now,
	}
}

// maxBodyBytes bounds a single feed response.
const maxBodyBytes = 32 << 20

func (f *Fetcher) Name() string { return f.name }

// Fetch issues one GET and decodes the body. Errors are *Error values
// classified as NetworkFailure or MalformedPayload.
func (f *Fetcher) Fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Snapshot{}, &Error{Kind: NetworkFailure, Feed: f.name, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, &Error{Kind: NetworkFailure, Feed: f.name, Err: fmt.Errorf("failed to fetch %s: %w", f.url, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &Error{Kind: NetworkFailure, Feed: f.name, Err: fmt.Errorf("HTTP %d from %s", resp.StatusCode, f.url)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return Snapshot{}, &Error{Kind: NetworkFailure, Feed: f.name, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return Snapshot{}, &Error{Kind: MalformedPayload, Feed: f.name, Err: fmt.Errorf("body exceeds %d bytes", f.maxBody)}
	}

	receivedAt := f.now()
	records, err := f.decoder.Decode(body, receivedAt)
	if err != nil {
		return Snapshot{}, &Error{Kind: MalformedPayload, Feed: f.name, Err: err}
	}
	return Snapshot{Feed: f.name, Records: records, ReceivedAt: receivedAt}, nil
}
