// Package highlevel talks to the LeadConnector CRM API. The CRM is a
// best-effort mirror: callers treat failures here as degradations, never
// as signup blockers.
package highlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("highlevel")

// Client wraps HTTP calls to the LeadConnector REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	locationID string
	version    string
	cb         *gobreaker.CircuitBreaker
	bh         *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a LeadConnector client. version is the mandatory
// Version header value the API requires on every call. The bulkhead
// caps in-flight CRM calls so a slow mirror cannot pile up goroutines.
func NewClient(httpClient *http.Client, baseURL, token, locationID, version string, cb *gobreaker.CircuitBreaker, bh *resilience.Bulkhead, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		locationID: locationID,
		version:    version,
		cb:         cb,
		bh:         bh,
		cfg:        cfg,
		logger:     logger,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Version", c.version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// FindContactByEmail searches location contacts and matches the email
// client-side. Returns nil when no contact carries the email.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*domain.CRMContact, error) {
	ctx, span := tracer.Start(ctx, "HighLevel.FindContactByEmail")
	defer span.End()

	if err := c.bh.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bh.Release()

	var contact *domain.CRMContact

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/contacts/?locationId=%s&query=%s",
				c.baseURL, url.QueryEscape(c.locationID), url.QueryEscape(email))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			c.setHeaders(req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				c.logger.Warn("highlevel: contact search non-2xx",
					zap.Int("status", resp.StatusCode),
					zap.String("body", string(body)),
				)
				return fmt.Errorf("highlevel contact search returned %d", resp.StatusCode)
			}

			var result struct {
				Contacts []domain.CRMContact `json:"contacts"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("decode contacts: %w", err)
			}

			contact = nil
			for i := range result.Contacts {
				if strings.EqualFold(result.Contacts[i].Email, email) {
					contact = &result.Contacts[i]
					break
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrUpstream{Service: "highlevel", Err: err}
	}

	return contact, nil
}

// UpsertLead mirrors a provisioned signup into the CRM as a lead contact.
// Creates are not retried: a duplicate-contact response counts as success
// because the mirror already holds the lead.
func (c *Client) UpsertLead(ctx context.Context, lead *domain.CRMLead) error {
	ctx, span := tracer.Start(ctx, "HighLevel.UpsertLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.email", lead.Email))

	if err := c.bh.Acquire(ctx); err != nil {
		return err
	}
	defer c.bh.Release()

	lead.LocationID = c.locationID

	_, err := c.cb.Execute(func() (any, error) {
		jsonBody, err := json.Marshal(lead)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		// 400 "duplicated contacts" means the lead already exists.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "duplicate") {
			c.logger.Info("highlevel: lead already mirrored", zap.String("email", lead.Email))
			return nil, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("highlevel: lead create non-2xx",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
			)
			return nil, fmt.Errorf("highlevel lead create returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return &domain.ErrUpstream{Service: "highlevel", Err: err}
	}

	return nil
}
