package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crm-access-engine/internal/platform/httpclient"
	"crm-access-engine/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("idp client not configured")
	ErrTokenEmpty    = errors.New("token is empty")
	ErrUnauthorized  = errors.New("idp unauthorized")
	ErrUpstream      = errors.New("idp upstream error")
)

const verifyPath = "/v1/tokens/verify"

// Config del identity provider. BaseURL y APIKey vienen de IDP_BASE_URL / IDP_API_KEY.
type Config struct {
	BaseURL string
	APIKey  string

	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

var _ auth.AuthVerifier = (*Client)(nil)

// Client implementa auth.AuthVerifier contra el identity provider.
type Client struct {
	http *httpclient.Client
	// header donde va la API key del servicio
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.New(cfg.BaseURL, timeout, httpclient.WithHeader(h, cfg.APIKey))
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, apiKeyHeader: h}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http.BaseURL() != "" && c.http.HasHeader(c.apiKeyHeader)
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id"`
}

// Verify pide al IdP que valide el token y devuelve el triple
// {user_id, role, permissions}.
func (c *Client) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var out verifyResponse
	err := c.http.Do(ctx, httpclient.Call{
		Method: http.MethodPost,
		Path:   verifyPath,
		Bearer: token,
		Body:   verifyRequest{Token: token},
	}, &out)
	if err != nil {
		var he *httpclient.HTTPError
		if errors.As(err, &he) {
			switch he.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return auth.Claims{}, ErrUnauthorized
			default:
				return auth.Claims{}, fmt.Errorf("%w: status=%d", ErrUpstream, he.StatusCode)
			}
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user_id", ErrUpstream)
	}

	perms := make([]string, 0, len(out.Permissions))
	for _, p := range out.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	return auth.Claims{
		UserID:      out.UserID,
		Role:        strings.TrimSpace(out.Role),
		Permissions: perms,
		Email:       strings.TrimSpace(out.Email),
		TenantID:    strings.TrimSpace(out.TenantID),
	}, nil
}
