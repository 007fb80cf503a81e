// Package abuse scores anonymous viewing requests with a reCAPTCHA v3 style
// verifier.
package abuse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/config"
)

const verifyTimeout = 5 * time.Second

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// RecaptchaScorer verifies captcha tokens against the verification endpoint.
type RecaptchaScorer struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewRecaptchaScorer creates a scorer from the abuse configuration.
func NewRecaptchaScorer(cfg config.AbuseConfig) *RecaptchaScorer {
	return &RecaptchaScorer{
		secret:    cfg.GetRecaptchaSecret(),
		verifyURL: cfg.GetRecaptchaVerifyURL(),
		client:    &http.Client{Timeout: verifyTimeout},
	}
}

// Score returns the verifier's score in [0, 1]. A missing or rejected token is
// a Forbidden error; transport failures are plain errors.
func (s *RecaptchaScorer) Score(ctx context.Context, token, remoteAddr string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperr.Forbidden("captcha token missing")
	}

	form := url.Values{}
	form.Set("secret", s.secret)
	form.Set("response", token)
	if remoteAddr != "" {
		form.Set("remoteip", remoteAddr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("captcha verify: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("captcha verify failed: status %d: %s", resp.StatusCode, string(data))
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("captcha verify decode: %w", err)
	}
	if !out.Success {
		return 0, apperr.Forbidden("captcha token rejected").WithDetails(out.ErrorCodes)
	}
	return out.Score, nil
}
