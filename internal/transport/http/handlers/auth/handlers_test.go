package authhandler

import (
	"strings"
	"testing"
	"time"
)

func TestBuildResetLink(t *testing.T) {
	check := func(base, token, want string) {
		t.Helper()
		if got := buildResetLink(base, token); got != want {
			t.Fatalf("buildResetLink(%q, %q) = %q, want %q", base, token, got, want)
		}
	}

	// A missing or unusable base URL falls back to the local default.
	check("", "abc", "http://localhost:8080/reset?token=abc")
	check("not a url", "abc", "http://localhost:8080/reset?token=abc")

	check("https://appraise.example.com", "token123", "https://appraise.example.com/reset?token=token123")
	check("https://appraise.example.com/app", "xyz", "https://appraise.example.com/app/reset?token=xyz")
}

func TestBuildResetEmailMessage(t *testing.T) {
	link := "https://appraise.example.com/reset?token=abc"

	msg := buildResetEmailMessage(link, 2*time.Hour)
	for _, want := range []string{link, "expires in 2 hour(s)"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("reset email %q is missing %q", msg, want)
		}
	}

	if short := buildResetEmailMessage(link, 10*time.Minute); !strings.Contains(short, "expires in 1 hour(s)") {
		t.Fatalf("reset email %q should round the lifetime up to an hour", short)
	}
}
