package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProfileStore implementation: user_profiles via PostgREST
// ============================================================

const profilesTable = "user_profiles"

// GetProfileByID fetches a profile row by auth user id. Returns nil when no
// row exists; absence is a state, not an error, for bootstrap callers.
func (c *Client) GetProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByID")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("%s?id=eq.%s&limit=1", profilesTable, url.QueryEscape(userID))
	return c.fetchOne(ctx, path)
}

// GetProfileByEmail fetches a profile row by email. Returns nil when absent.
func (c *Client) GetProfileByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByEmail")
	defer span.End()

	path := fmt.Sprintf("%s?email=eq.%s&limit=1", profilesTable, url.QueryEscape(email))
	return c.fetchOne(ctx, path)
}

func (c *Client) fetchOne(ctx context.Context, path string) (*domain.UserProfile, error) {
	var profile *domain.UserProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				profile = nil
				return nil
			}

			var rows []domain.UserProfile
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode user_profiles: %w", err)
			}
			if len(rows) == 0 {
				profile = nil
				return nil
			}
			profile = &rows[0]
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrUpstream{Service: "supabase/profiles", Err: err}
	}

	return profile, nil
}

// CreateProfile inserts a profile row and returns the stored representation.
// Inserts are not retried; a duplicate key means a concurrent provision won.
func (c *Client) CreateProfile(ctx context.Context, columns map[string]any) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()

	result, err := c.cb.Execute(func() (any, error) {
		return c.doPost(ctx, profilesTable, columns)
	})
	if err != nil {
		return nil, &domain.ErrUpstream{Service: "supabase/profiles", Err: err}
	}

	var rows []domain.UserProfile
	if err := json.Unmarshal(result.([]byte), &rows); err != nil {
		return nil, fmt.Errorf("decode created profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no representation for created profile")
	}
	return &rows[0], nil
}

// UpdateProfile patches a profile row and re-reads it. Returns
// *domain.ErrNotFound when no row matches the id.
func (c *Client) UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	existing, err := c.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}

	path := fmt.Sprintf("%s?id=eq.%s", profilesTable, url.QueryEscape(userID))
	_, err = c.cb.Execute(func() (any, error) {
		return nil, c.doPatch(ctx, path, updates)
	})
	if err != nil {
		return nil, &domain.ErrUpstream{Service: "supabase/profiles", Err: err}
	}

	return c.GetProfileByID(ctx, userID)
}

// UpdateProfileByEmail patches the row matching an email. Returns
// *domain.ErrNotFound when no profile carries that email.
func (c *Client) UpdateProfileByEmail(ctx context.Context, email string, updates map[string]any) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfileByEmail")
	defer span.End()

	existing, err := c.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: email}
	}

	return c.UpdateProfile(ctx, existing.ID, updates)
}

// ListProfiles pages through profiles, newest first.
func (c *Client) ListProfiles(ctx context.Context, page, pageSize int) ([]domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	var profiles []domain.UserProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("%s?order=created_at.desc&limit=%d&offset=%d", profilesTable, pageSize, offset)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				profiles = []domain.UserProfile{}
				return nil
			}

			var rows []domain.UserProfile
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode user_profiles: %w", err)
			}
			profiles = rows
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrUpstream{Service: "supabase/profiles", Err: err}
	}

	return profiles, nil
}
