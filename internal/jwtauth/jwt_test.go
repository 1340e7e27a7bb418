package jwtauth

import (
	"testing"
	"time"

	dErrors "lendo/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := New("test-signing-key")

	token, err := svc.IssueReviewerToken("reviewer-42", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if subject != "reviewer-42" {
		t.Fatalf("expected subject reviewer-42, got %q", subject)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := New("test-signing-key")

	token, err := svc.IssueReviewerToken("reviewer-42", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.ValidateToken(token); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := New("key-one").IssueReviewerToken("reviewer-42", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := New("key-two").ValidateToken(token); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong key, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := New("test-signing-key")
	if _, err := svc.ValidateToken("not-a-jwt"); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}
