package errors

import (
	"errors"
	"fmt"
)

var (
	// Realtime operation errors, reported to the triggering connection only.
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNotMember        = fmt.Errorf("not a member of the channel")
	ErrInvalidContent   = fmt.Errorf("invalid message content")

	// Credential errors. All of them collapse to CodeNotAuthenticated on
	// the wire, the distinction only matters for logs and tests.
	ErrTokenExpired   = fmt.Errorf("token expired")
	ErrTokenMalformed = fmt.Errorf("token malformed")
	ErrTokenInvalid   = fmt.Errorf("token invalid")

	// Account and channel management errors.
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrChannelNotFound    = fmt.Errorf("channel not found")
	ErrNotFound           = fmt.Errorf("not found")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Wire error codes of the socket protocol.
const (
	CodeNotAuthenticated = "not_authenticated"
	CodeNotMember        = "not_member"
	CodeInvalidContent   = "invalid_content"
	CodeServerError      = "server_error"
)

// Code maps an operation error to its wire code. Anything outside the
// taxonomy is a backing-store or internal failure and is reported as
// server_error without leaking details to the client.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenInvalid):
		return CodeNotAuthenticated
	case errors.Is(err, ErrNotMember):
		return CodeNotMember
	case errors.Is(err, ErrInvalidContent):
		return CodeInvalidContent
	default:
		return CodeServerError
	}
}
