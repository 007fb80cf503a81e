package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/estate")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("ABUSE_SCORING_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
}

func TestLoadAppliesAppointmentDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DUPLICATE_REQUEST_WINDOW", "24h")
	t.Setenv("ABUSE_SCORE_THRESHOLD", "0.3")
	t.Setenv("PROPERTY_VIEWABLE_STATUSES", "available, coming_soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GetDuplicateRequestWindow() != 24*time.Hour {
		t.Errorf("duplicate window = %s, want 24h", cfg.GetDuplicateRequestWindow())
	}
	if cfg.GetAbuseScoreThreshold() != 0.3 {
		t.Errorf("score threshold = %v, want 0.3", cfg.GetAbuseScoreThreshold())
	}
	statuses := cfg.GetViewablePropertyStatuses()
	if len(statuses) != 2 || statuses[0] != "available" || statuses[1] != "coming_soon" {
		t.Errorf("viewable statuses = %v", statuses)
	}
	if cfg.GetEmailEnabled() {
		t.Error("email should be disabled without SMTP_HOST")
	}
}

func TestLoadRequiresRecaptchaSecretWhenScoringEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ABUSE_SCORING_ENABLED", "true")
	t.Setenv("RECAPTCHA_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when scoring is enabled without a secret")
	}
}

func TestLoadRejectsNonPositiveDuplicateWindow(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DUPLICATE_REQUEST_WINDOW", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero duplicate window")
	}
}

func TestLoadAppointmentTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APPOINTMENT_TIMEZONE", "Europe/Amsterdam")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.GetAppointmentLocation().String(); got != "Europe/Amsterdam" {
		t.Fatalf("location = %s", got)
	}

	t.Setenv("APPOINTMENT_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
