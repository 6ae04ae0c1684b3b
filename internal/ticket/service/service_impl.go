package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     ticketdomain.Repository
	recorder *changefeed.Recorder
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     ticketdomain.Repository
	Recorder *changefeed.Recorder
}

func NewService(p ServiceParam) ticketdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ticket.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		recorder: p.Recorder,
	}
}

func (s *Service) Save(ctx context.Context, key tenant.Key, req ticketdomain.SaveRequest) (ticketdomain.Ticket, error) {
	if err := key.Validate(); err != nil {
		return ticketdomain.Ticket{}, err
	}
	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return ticketdomain.Ticket{}, ticketdomain.ErrInvalidBookingID
	}

	var saved ticketdomain.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.repo.FindByID(ctx, tx, key, bookingID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		after := ticketdomain.Ticket{
			TenantID:         key.TenantID,
			AppID:            key.AppID,
			BookingID:        bookingID,
			CustomerID:       strings.TrimSpace(req.CustomerID),
			CustomerName:     strings.TrimSpace(req.CustomerName),
			AssignedEmployee: req.AssignedEmployee,
			EngineerStatus:   strings.TrimSpace(req.EngineerStatus),
			AdminStatus:      strings.TrimSpace(req.AdminStatus),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if before != nil {
			after.CreatedAt = before.CreatedAt
		}
		if err := s.repo.Upsert(ctx, tx, &after); err != nil {
			return fmt.Errorf("save ticket: %w", err)
		}
		if _, err := s.recorder.Record(ctx, tx, key, changefeed.CollectionTickets, bookingID, before, after); err != nil {
			return err
		}
		saved = after
		return nil
	})
	return saved, err
}

func (s *Service) Get(ctx context.Context, key tenant.Key, bookingID string) (ticketdomain.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, s.db, key, strings.TrimSpace(bookingID))
	if err != nil {
		return ticketdomain.Ticket{}, err
	}
	if ticket == nil {
		return ticketdomain.Ticket{}, ticketdomain.ErrTicketNotFound
	}
	return *ticket, nil
}

func (s *Service) Delete(ctx context.Context, key tenant.Key, bookingID string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return ticketdomain.ErrInvalidBookingID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.repo.FindByID(ctx, tx, key, bookingID)
		if err != nil {
			return err
		}
		if before == nil {
			return ticketdomain.ErrTicketNotFound
		}
		if err := s.repo.Delete(ctx, tx, key, bookingID); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, tx, key, changefeed.CollectionTickets, bookingID, before, nil)
		return err
	})
}
