// Package workflow triggers the external number-provisioning workflow over
// a webhook. The workflow acquires a phone number out of band and reports
// the result back through the callback endpoint, so the ack returned here
// is advisory, not authoritative.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fieldcall/fieldcall-backend/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("workflow")

// Client posts purchase requests to the workflow webhook.
type Client struct {
	httpClient *http.Client
	webhookURL string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a workflow client for the given webhook URL.
func NewClient(httpClient *http.Client, webhookURL string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		webhookURL: webhookURL,
		cb:         cb,
		logger:     logger,
	}
}

// Trigger forwards the purchase request to the webhook. Triggering is not
// idempotent (each delivery may buy a number), so it runs under the breaker
// without retries.
func (c *Client) Trigger(ctx context.Context, purchase domain.NumberPurchaseRequest) (*domain.WorkflowAck, error) {
	ctx, span := tracer.Start(ctx, "Workflow.Trigger")
	defer span.End()

	if c.webhookURL == "" {
		return nil, &domain.ErrConfiguration{Name: "NUMBER_WEBHOOK_URL"}
	}

	result, err := c.cb.Execute(func() (any, error) {
		jsonBody, err := json.Marshal(purchase)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "FieldCall-Backend/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("workflow: webhook non-2xx",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
			)
			return nil, &domain.ErrUpstream{
				Service: "n8n",
				Status:  resp.StatusCode,
				Detail:  strings.TrimSpace(string(body)),
				Err:     fmt.Errorf("workflow webhook returned %d", resp.StatusCode),
			}
		}

		return parseAck(body), nil
	})
	if err != nil {
		var upstream *domain.ErrUpstream
		if !errors.As(err, &upstream) {
			err = &domain.ErrUpstream{Service: "n8n", Err: err}
		}
		return nil, err
	}

	return result.(*domain.WorkflowAck), nil
}

// parseAck tolerates the full range of webhook responses: a JSON object,
// an empty body, or free-form text.
func parseAck(body []byte) *domain.WorkflowAck {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return &domain.WorkflowAck{Success: true, Raw: map[string]any{}}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return &domain.WorkflowAck{Success: true, Message: text, Raw: map[string]any{"message": text}}
	}

	ack := &domain.WorkflowAck{Raw: raw}
	if v, ok := raw["success"].(bool); ok {
		ack.Success = v
	} else {
		ack.Success = true
	}
	if v, ok := raw["phoneNumber"].(string); ok {
		ack.PhoneNumber = v
	}
	if v, ok := raw["friendlyName"].(string); ok {
		ack.FriendlyName = v
	}
	if v, ok := raw["message"].(string); ok {
		ack.Message = v
	}
	return ack
}
