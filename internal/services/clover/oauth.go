package clover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"stocksync/internal/config"
	"stocksync/internal/logger"
)

type OAuthService struct {
	config     config.CloverConfig
	httpClient *http.Client
	logger     *logger.Logger
}

func NewOAuthService(cfg config.CloverConfig, logger *logger.Logger) *OAuthService {
	return &OAuthService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// AuthorizationURL builds the Clover consent URL. It does no I/O.
func (s *OAuthService) AuthorizationURL(redirectURI, state string) string {
	authURL := fmt.Sprintf(
		"%s/oauth/authorize?client_id=%s&redirect_uri=%s&response_type=code",
		s.config.BaseURL(),
		url.QueryEscape(s.config.AppID),
		url.QueryEscape(redirectURI),
	)
	if state != "" {
		authURL += "&state=" + url.QueryEscape(state)
	}
	return authURL
}

// ExchangeCodeForToken trades an authorization code for an access token.
// Failures are returned as *AuthExchangeError; the client secret never appears
// in errors or logs.
func (s *OAuthService) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	tokenURL := s.config.BaseURL() + "/oauth/token"

	data := url.Values{}
	data.Set("client_id", s.config.AppID)
	data.Set("client_secret", s.config.AppSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", redirectURI)

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &AuthExchangeError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Clover token exchange request failed", zap.Error(err))
		return nil, &AuthExchangeError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := s.redact(remoteReason(body))
		s.logger.Warn("Clover token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("reason", reason),
		)
		return nil, &AuthExchangeError{Status: resp.StatusCode, Reason: reason}
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &AuthExchangeError{Status: resp.StatusCode, Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return nil, &AuthExchangeError{Status: resp.StatusCode, Reason: "response did not contain an access token"}
	}

	return &tokenResp, nil
}

func (s *OAuthService) redact(text string) string {
	if s.config.AppSecret == "" {
		return text
	}
	return strings.ReplaceAll(text, s.config.AppSecret, "[redacted]")
}

// remoteReason pulls a human readable message out of a Clover error body.
func remoteReason(body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.ErrorDescription != "":
			return payload.ErrorDescription
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	return truncate(strings.TrimSpace(string(body)), 256)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
