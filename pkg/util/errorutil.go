package util

import (
	"errors"
	"fmt"
	"time"
)

// Error codes grouped by the failure taxonomy: caller rejections carry
// a user-visible message and cause no state change; platform failures
// are logged and degraded around, never fatal to the triggering
// operation.
const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidTarget    = "INVALID_TARGET"
	CodeDuplicateTicket  = "DUPLICATE_TICKET"
	CodeCooldownActive   = "COOLDOWN_ACTIVE"
	CodeInvalidState     = "INVALID_STATE"
	CodeNotFound         = "NOT_FOUND"
	CodePlatformFailure  = "PLATFORM_FAILURE"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NewPermissionDenied(message string) error {
	return NewDomainError(CodePermissionDenied, message)
}

// NewInvalidTarget rejects interactions whose channel matches no ticket.
func NewInvalidTarget() error {
	return NewDomainError(CodeInvalidTarget, "This is not a valid ticket channel.")
}

func NewDuplicateTicket(channelID string) error {
	return NewDomainError(CodeDuplicateTicket,
		fmt.Sprintf("You already have an active ticket: <#%s>", channelID))
}

// NewCooldownActive carries the remaining wait, rounded up to seconds.
func NewCooldownActive(remaining time.Duration) error {
	secs := int((remaining + time.Second - 1) / time.Second)
	return NewDomainError(CodeCooldownActive,
		fmt.Sprintf("Please wait %d seconds before opening another ticket.", secs))
}

// NewInvalidState rejects operations not permitted by the ticket's
// current state, e.g. claiming an already claimed ticket.
func NewInvalidState(message string) error {
	return NewDomainError(CodeInvalidState, message)
}

func NewNotFound(what string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found.", what))
}

func NewPlatformFailure(message string, err error) error {
	return &DomainError{Code: CodePlatformFailure, Message: message, Err: err}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:    CodePlatformFailure,
		Message: "An error occurred while executing that action.",
		Err:     err,
	}
}

// UserMessage returns the caller-facing acknowledgment text for err.
func UserMessage(err error) string {
	return ToDomainError(err).Message
}
