package download

type RegisterRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	SourceURL      string `json:"source_url"`
	WebhookURL     string `json:"webhook_url,omitempty"`
}
