package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type Service interface {
	// Issue emails a fresh code to email, superseding any earlier one.
	Issue(ctx context.Context, key tenant.Key, email string) (IssueResult, error)
	// Verify consumes the code. A code verifies at most once.
	Verify(ctx context.Context, key tenant.Key, email, code string) error
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrExpired         = errors.New("code_expired")
	ErrCodeNotFound    = errors.New("code_not_found")
	ErrTooManyAttempts = errors.New("too_many_attempts")
)
