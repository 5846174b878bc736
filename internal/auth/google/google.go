// Package google implements the federated sign-in flow against Google's
// OAuth endpoints: authorization redirect with state and PKCE, code
// exchange, and identity fetch.
package google

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/framecraft/studio/internal/config"
	"go.uber.org/fx"
)

const defaultTokenSize = 32

var (
	ErrNotConfigured  = errors.New("google sign-in not configured")
	ErrInvalidRequest = errors.New("invalid oauth request")
	ErrExchangeFailed = errors.New("oauth code exchange failed")
)

type RedirectResult struct {
	URL          string
	State        string
	CodeVerifier string
}

// Identity is what Google asserted about the signer.
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
	Image       string
}

type Service interface {
	RedirectURL(redirectURI string) (*RedirectResult, error)
	Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*Identity, error)
}

type service struct {
	cfg        config.GoogleOAuthConfig
	httpClient *http.Client
}

func NewService(cfg config.GoogleOAuthConfig) Service {
	return &service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *service) RedirectURL(redirectURI string) (*RedirectResult, error) {
	if !s.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(redirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	state, err := randomToken(defaultTokenSize)
	if err != nil {
		return nil, err
	}
	verifier, err := randomToken(defaultTokenSize)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(s.cfg.AuthURL)
	if err != nil {
		return nil, err
	}
	query := parsed.Query()
	query.Set("response_type", "code")
	query.Set("client_id", s.cfg.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("scope", "openid email profile")
	query.Set("state", state)
	query.Set("code_challenge", pkceChallenge(verifier))
	query.Set("code_challenge_method", "S256")
	parsed.RawQuery = query.Encode()

	return &RedirectResult{
		URL:          parsed.String(),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IDToken     string `json:"id_token"`
}

type userInfoResponse struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *service) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*Identity, error) {
	if !s.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidRequest
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	if strings.TrimSpace(codeVerifier) != "" {
		form.Set("code_verifier", codeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrExchangeFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, ErrExchangeFailed
	}

	return s.fetchIdentity(ctx, token.AccessToken)
}

func (s *service) fetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrExchangeFailed, resp.StatusCode)
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, ErrExchangeFailed
	}

	return &Identity{
		ExternalID:  info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
		Image:       info.Picture,
	}, nil
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

var Module = fx.Module("auth.google",
	fx.Provide(NewService),
)
