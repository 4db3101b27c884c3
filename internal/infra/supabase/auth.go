package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// IdentityProvider implementation: GoTrue auth API
// ============================================================

type gotrueUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	default:
		return e.ErrorDescription
	}
}

func toIdentity(u gotrueUser) *domain.Identity {
	created, _ := time.Parse(time.RFC3339, u.CreatedAt)
	return &domain.Identity{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: created,
	}
}

// SignUp creates an identity through the public signup endpoint. When the
// project auto-confirms emails, GoTrue establishes a session in the same
// call and the tokens come back with the user.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Identity, *domain.SessionTokens, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()
	span.SetAttributes(attribute.String("user.email", email))

	status, body, err := c.doAuth(ctx, http.MethodPost, "signup", c.anonKey, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, nil, err
	}

	if status < 200 || status >= 300 {
		var authErr gotrueError
		_ = json.Unmarshal(body, &authErr)
		msg := authErr.text()
		if isDuplicateUser(status, msg) {
			return nil, nil, &domain.ErrConflict{Message: "an account with this email already exists"}
		}
		c.logger.Warn("supabase: signup rejected",
			zap.Int("status", status),
			zap.String("msg", msg),
		)
		return nil, nil, fmt.Errorf("supabase signup returned %d: %s", status, msg)
	}

	var sess gotrueSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}

	identity := toIdentity(sess.User)

	// Confirmation-required projects return the user without tokens.
	if sess.AccessToken == "" {
		return identity, nil, nil
	}

	return identity, &domain.SessionTokens{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		ExpiresIn:    sess.ExpiresIn,
	}, nil
}

// AdminCreateUser creates a pre-confirmed identity via the admin API.
func (c *Client) AdminCreateUser(ctx context.Context, email, password string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AdminCreateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.email", email))

	status, body, err := c.doAuth(ctx, http.MethodPost, "admin/users", c.serviceRoleKey, map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var authErr gotrueError
		_ = json.Unmarshal(body, &authErr)
		msg := authErr.text()
		if isDuplicateUser(status, msg) {
			return nil, &domain.ErrConflict{Message: "an account with this email already exists"}
		}
		c.logger.Warn("supabase: admin create user rejected",
			zap.Int("status", status),
			zap.String("msg", msg),
		)
		return nil, fmt.Errorf("supabase admin create user returned %d: %s", status, msg)
	}

	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode admin user response: %w", err)
	}

	return toIdentity(user), nil
}

// AdminFindUserByEmail lists identities via the admin API and matches the
// email client-side. GoTrue has no server-side email filter on this
// endpoint. Returns nil when no identity exists.
func (c *Client) AdminFindUserByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AdminFindUserByEmail")
	defer span.End()

	status, body, err := c.doAuth(ctx, http.MethodGet, "admin/users?per_page=1000", c.serviceRoleKey, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("supabase admin list users returned %d: %s", status, string(body))
	}

	var list struct {
		Users []gotrueUser `json:"users"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode admin user list: %w", err)
	}

	for _, u := range list.Users {
		if strings.EqualFold(u.Email, email) {
			return toIdentity(u), nil
		}
	}
	return nil, nil
}

func isDuplicateUser(status int, msg string) bool {
	if status == http.StatusConflict {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "already registered") || strings.Contains(lower, "already been registered")
}
