// Package turnstile verifies bot-check tokens against the hosted
// verification endpoint before any login attempt is allowed through.
package turnstile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/framecraft/studio/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result is the verification outcome. A failed outbound call is reported as
// an unsuccessful verification, never as an error: the enclosing login fails
// closed instead of crashing.
type Result struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) Result
}

type Client struct {
	log        *zap.Logger
	cfg        config.TurnstileConfig
	httpClient *http.Client
}

func NewClient(log *zap.Logger, cfg config.TurnstileConfig) Verifier {
	return &Client{
		log:        log.Named("turnstile.client"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Verify(ctx context.Context, token, remoteIP string) Result {
	if strings.TrimSpace(c.cfg.Secret) == "" {
		// Missing server secret fails closed rather than waving logins through.
		return Result{Success: false, ErrorCodes: []string{"missing-input-secret"}}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Success: false, ErrorCodes: []string{"missing-input-response"}}
	}

	form := url.Values{}
	form.Set("secret", c.cfg.Secret)
	form.Set("response", token)
	if ip := strings.TrimSpace(remoteIP); ip != "" && ip != "unknown" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return c.networkFailure(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkFailure(err)
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return c.networkFailure(err)
	}
	return result
}

func (c *Client) networkFailure(err error) Result {
	c.log.Warn("turnstile verification call failed", zap.Error(err))
	return Result{Success: false, ErrorCodes: []string{"network-error"}}
}

var Module = fx.Module("turnstile",
	fx.Provide(NewClient),
)
