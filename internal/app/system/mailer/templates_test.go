package mailer

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuildVerificationEmail(t *testing.T) {
	e := BuildVerificationEmail(VerificationEmailData{
		SiteName: "BookHunter",
		Link:     "https://bookhunter.test/verify/65a1b2c3d4e5f60718293a4b",
	})
	if e.Subject != "BookHunter: Please confirm your Email account" {
		t.Errorf("unexpected subject %q", e.Subject)
	}
	if !strings.Contains(e.Body, "https://bookhunter.test/verify/65a1b2c3d4e5f60718293a4b") {
		t.Error("expected body to contain the verification link")
	}
}

func TestBuildResetEmail(t *testing.T) {
	e := BuildResetEmail(ResetEmailData{
		SiteName:  "BookHunter",
		Link:      "https://bookhunter.test/reset/abc123",
		ExpiresIn: "1 hour",
	})
	if e.Subject != "BookHunter Password Reset" {
		t.Errorf("unexpected subject %q", e.Subject)
	}
	if !strings.Contains(e.Body, "https://bookhunter.test/reset/abc123") {
		t.Error("expected body to contain the reset link")
	}
	if !strings.Contains(e.Body, "expires in 1 hour") {
		t.Error("expected body to state the expiry")
	}
}

func TestBuildPasswordChangedEmail(t *testing.T) {
	e := BuildPasswordChangedEmail(PasswordChangedEmailData{SiteName: "BookHunter", Username: "reader@example.com"})
	if !strings.Contains(e.Body, "reader@example.com") {
		t.Error("expected body to name the account")
	}
	if !strings.Contains(e.Subject, "has been changed") {
		t.Errorf("unexpected subject %q", e.Subject)
	}
}

func TestBuildContactEmail(t *testing.T) {
	e := BuildContactEmail(ContactEmailData{
		SiteName: "BookHunter",
		Name:     "Ada Reader",
		Email:    "ada@example.com",
		Subject:  "Missing cover",
		Message:  "The cover for Dune does not load.",
	})
	if e.Subject != "New message from contact form at BookHunter" {
		t.Errorf("unexpected subject %q", e.Subject)
	}
	for _, want := range []string{"Ada Reader", "ada@example.com", "Missing cover", "The cover for Dune does not load."} {
		if !strings.Contains(e.Body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{30 * time.Minute, "30 minutes"},
		{time.Minute, "1 minute"},
		{90 * time.Minute, "90 minutes"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := &DeliveryError{To: "a@b.c", Err: errSentinel}
	if !strings.Contains(cause.Error(), "a@b.c") {
		t.Errorf("unexpected message %q", cause.Error())
	}
	if cause.Unwrap() != errSentinel {
		t.Error("expected Unwrap to return the cause")
	}
}

var errSentinel = errors.New("boom")
