package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"transfer-manager-api/internal/domain/download"
)

// Sender posts terminal download facts to the URL supplied at
// registration time. One call is one attempt; the caller owns retries.
type Sender struct {
	logger *zap.Logger
	client *http.Client
}

func NewSender(logger *zap.Logger, timeout time.Duration) *Sender {
	return &Sender{
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Sender) Send(ctx context.Context, fact download.WebhookFact) error {
	if fact.WebhookURL == "" {
		return fmt.Errorf("webhook fact for download %s has no url", fact.DownloadID)
	}

	b, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fact.WebhookURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	s.logger.Info("webhook delivered",
		zap.String("download_id", fact.DownloadID.String()),
		zap.String("status", string(fact.Status)),
	)

	return nil
}
