package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// WebhookNotifier POSTs the persisted schedule to the host application.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier creates a notifier with retries on transport errors.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, sched *models.PersistedSchedule) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(sched).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to call schedule webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("schedule webhook returned status %d", resp.StatusCode())
	}

	w.logger.Debug("Schedule webhook delivered",
		zap.String("date_key", sched.DateKey),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
