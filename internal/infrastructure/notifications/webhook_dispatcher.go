package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/providers"
	"github.com/rxgrid/pharmacy-discovery/pkg/config"
	"github.com/rxgrid/pharmacy-discovery/pkg/retry"
)

// WebhookDispatcher delivers notification intents to the delivery gateway
// over HTTP. A circuit breaker keeps a dead gateway from stalling every
// notify request.
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var _ providers.NotificationDispatcher = (*WebhookDispatcher)(nil)

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(cfg *config.NotificationConfig) (*WebhookDispatcher, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("notification webhook URL is not configured")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notification-webhook",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &WebhookDispatcher{
		url:        cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}, nil
}

// Dispatch posts one intent to the gateway, retrying transient failures
// within a short request-scoped budget.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, intent entities.NotificationIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to encode notification intent: %w", err)
	}

	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, retry.DispatchConfig(), func() error {
			return d.post(ctx, body)
		})
	})
	if err != nil {
		return fmt.Errorf("webhook dispatch for pharmacy %s failed: %w", intent.PharmacyID, err)
	}
	return nil
}

func (d *WebhookDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
