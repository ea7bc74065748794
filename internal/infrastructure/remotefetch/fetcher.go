package remotefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"transfer-manager-api/internal/application/ports"
)

// maxBodyBytes caps how much of a remote resource is buffered. Anything
// larger fails the attempt rather than exhausting memory.
const maxBodyBytes = 512 << 20

// Fetcher pulls remote resources over HTTP. Transport-level hiccups
// (network errors, 5xx, 429) are retried with exponential backoff
// inside one Fetch call; a 4xx is returned immediately because the
// resource itself is the problem.
type Fetcher struct {
	logger  *zap.Logger
	client  *http.Client
	retries uint64
}

func NewFetcher(logger *zap.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		retries: 3,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (*ports.FetchedObject, error) {
	var fetched *ports.FetchedObject

	backoff := retry.WithMaxRetries(f.retries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		obj, err := f.fetchOnce(ctx, sourceURL)
		if err != nil {
			return err
		}
		fetched = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fetched, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, sourceURL string) (*ports.FetchedObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("fetch %q: %w", sourceURL, err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, retry.RetryableError(fmt.Errorf("fetch %q: status %d", sourceURL, resp.StatusCode))
	default:
		return nil, fmt.Errorf("fetch %q: status %d", sourceURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read body of %q: %w", sourceURL, err))
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("fetch %q: body exceeds %d bytes", sourceURL, maxBodyBytes)
	}

	f.logger.Debug("remote resource fetched",
		zap.String("source_url", sourceURL),
		zap.Int("size_bytes", len(body)),
	)

	return &ports.FetchedObject{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}
