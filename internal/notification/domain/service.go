package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
)

type BannerRequest struct {
	CustomerID string
	BookingID  string
	Title      string
	Body       string
	Type       string
}

type Service interface {
	// Dispatch never returns transport errors; the outcome describes what happened.
	Dispatch(ctx context.Context, key tenant.Key, role tokendomain.Role, userID string, payload Payload) Result
	FanOut(ctx context.Context, key tenant.Key, role tokendomain.Role, payload Payload) (Report, error)
	AppendBanner(ctx context.Context, key tenant.Key, req BannerRequest) (Banner, error)
	ListBanners(ctx context.Context, key tenant.Key, customerID string) ([]Banner, error)
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidTitle    = errors.New("invalid_title")
)
