package util

import (
	"errors"
	"testing"
	"time"
)

func TestCooldownMessageRoundsUp(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{300 * time.Second, "Please wait 300 seconds before opening another ticket."},
		{90*time.Second + 500*time.Millisecond, "Please wait 91 seconds before opening another ticket."},
		{time.Millisecond, "Please wait 1 seconds before opening another ticket."},
		{time.Second, "Please wait 1 seconds before opening another ticket."},
	}
	for _, tt := range tests {
		err := NewCooldownActive(tt.remaining)
		if got := UserMessage(err); got != tt.want {
			t.Errorf("NewCooldownActive(%v) message = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func TestDomainErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{NewPermissionDenied("no"), CodePermissionDenied},
		{NewInvalidTarget(), CodeInvalidTarget},
		{NewDuplicateTicket("chan-1"), CodeDuplicateTicket},
		{NewCooldownActive(time.Second), CodeCooldownActive},
		{NewInvalidState("claimed"), CodeInvalidState},
		{NewNotFound("Member"), CodeNotFound},
		{NewPlatformFailure("boom", errors.New("api down")), CodePlatformFailure},
	}
	for _, tt := range tests {
		var derr *DomainError
		if !errors.As(tt.err, &derr) {
			t.Fatalf("%v is not a DomainError", tt.err)
		}
		if derr.Code != tt.code {
			t.Errorf("code = %q, want %q", derr.Code, tt.code)
		}
	}
}

func TestPlatformFailureUnwraps(t *testing.T) {
	cause := errors.New("api down")
	err := NewPlatformFailure("boom", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}

func TestUserMessageForGenericError(t *testing.T) {
	got := UserMessage(errors.New("pgx: broken pipe"))
	if got != "An error occurred while executing that action." {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestUserMessageForDomainError(t *testing.T) {
	got := UserMessage(NewDuplicateTicket("chan-9"))
	if got != "You already have an active ticket: <#chan-9>" {
		t.Fatalf("UserMessage = %q", got)
	}
}
