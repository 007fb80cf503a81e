package abuse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"estate_portal_backend/platform/apperr"
)

type testAbuseConfig struct{ url string }

func (testAbuseConfig) IsAbuseScoringEnabled() bool     { return true }
func (testAbuseConfig) GetAbuseScoreThreshold() float64 { return 0.3 }
func (testAbuseConfig) GetRecaptchaSecret() string      { return "s3cret" }
func (c testAbuseConfig) GetRecaptchaVerifyURL() string { return c.url }

func TestScoreSendsFormAndParsesScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("secret") != "s3cret" || r.PostForm.Get("response") != "tok" || r.PostForm.Get("remoteip") != "203.0.113.5" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"success":true,"score":0.7,"action":"viewing_request"}`))
	}))
	defer srv.Close()

	score, err := NewRecaptchaScorer(testAbuseConfig{url: srv.URL}).Score(context.Background(), "tok", "203.0.113.5")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0.7 {
		t.Fatalf("score = %v", score)
	}
}

func TestScoreRejectedTokenIsForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	scorer := NewRecaptchaScorer(testAbuseConfig{url: srv.URL})
	if _, err := scorer.Score(context.Background(), "bad", ""); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want Forbidden", err)
	}
	if _, err := scorer.Score(context.Background(), "  ", ""); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("missing token err = %v, want Forbidden", err)
	}
}

func TestScoreOutageIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRecaptchaScorer(testAbuseConfig{url: srv.URL}).Score(context.Background(), "tok", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, typed := apperr.As(err); typed {
		t.Fatalf("outage must not be a typed business error: %v", err)
	}
}
