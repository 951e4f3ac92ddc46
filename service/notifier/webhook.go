package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const webhookTimeout = 5 * time.Second

type webhookService struct {
	CfgSvc  config.IService
	client  *http.Client
	backoff time.Duration
}

// NewWebhook posts alerts as JSON to the configured URL, retrying with
// exponential backoff on transport errors and 5xx responses.
func NewWebhook(cfgsvc config.IService) IService {
	return &webhookService{
		CfgSvc:  cfgsvc,
		client:  &http.Client{Timeout: webhookTimeout},
		backoff: 500 * time.Millisecond,
	}
}

func (svc *webhookService) Name() string {
	return "webhook"
}

func (svc *webhookService) Notify(ctx context.Context, alert Alert) error {
	url := svc.CfgSvc.GetWebhookURL()
	if url == "" {
		return fmt.Errorf("no webhook url configured")
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	retries := svc.CfgSvc.GetWebhookRetries()
	if retries < 0 {
		retries = 0
	}
	b := retry.WithMaxRetries(uint64(retries), retry.NewExponential(svc.backoff))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := svc.post(ctx, url, body)
		if err != nil {
			lgr.Logger.Warn(
				"webhook post failed",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}
		return err
	})
}

func (svc *webhookService) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("webhook returned %s", resp.Status))
	case resp.StatusCode >= 300:
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
