package humantask

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/model"
)

// HTTPWebhookSender delivers the task record to callbackUrl with capped
// exponential backoff, fire-and-forget from the request path per §5's
// "Webhook delivery" guarantee: at-least-once, receivers must be
// idempotent.
type HTTPWebhookSender struct {
	Client     *http.Client
	MaxRetries uint64
}

func NewHTTPWebhookSender() *HTTPWebhookSender {
	return &HTTPWebhookSender{
		Client:     &http.Client{Timeout: 10 * time.Second},
		MaxRetries: 5,
	}
}

// Deliver spawns a background goroutine that retries the POST with capped
// exponential backoff. It never blocks the caller and never surfaces an
// error to the invocation response, per §7's "Webhook delivery errors
// never affect the invocation response."
func (h *HTTPWebhookSender) Deliver(ctx context.Context, url string, task model.HumanTask) {
	body, err := json.Marshal(task)
	if err != nil {
		log.Error().Err(err).Str("task_id", task.TaskID).Msg("failed to marshal webhook body")
		return
	}

	go func() {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxInterval = 30 * time.Second
		bo.MaxElapsedTime = 5 * time.Minute
		withRetries := backoff.WithMaxRetries(bo, h.MaxRetries)

		deliverCtx, cancel := context.WithTimeout(context.Background(), 6*time.Minute)
		defer cancel()

		op := func() error {
			req, err := http.NewRequestWithContext(deliverCtx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := h.Client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return errRetryable(resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				// Client error: receiver rejected the payload; retrying
				// won't help, but delivery is still at-least-once from
				// our side, so we stop here rather than loop forever.
				return backoff.Permanent(errRetryable(resp.StatusCode))
			}
			return nil
		}

		if err := backoff.Retry(op, withRetries); err != nil {
			log.Warn().Err(err).Str("task_id", task.TaskID).Str("callback_url", url).
				Msg("webhook delivery exhausted retries")
		}
	}()
}

type errRetryable int

func (e errRetryable) Error() string {
	return "webhook delivery received non-2xx status"
}
