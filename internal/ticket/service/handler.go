package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	"github.com/smallbiznis/ticketflow/internal/observability/tracing"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TypeNewTicket            = "new_ticket"
	TypeNewAssignment        = "new_assignment"
	TypeTicketAssigned       = "ticket_assigned"
	TypeStatusUpdate         = "status_update"
	TypeEngineerStatusUpdate = "engineer_status_update"
)

// Handler turns ticket changes into pushes and banners.
type Handler struct {
	log           *zap.Logger
	notifications notificationdomain.Service
}

type HandlerParam struct {
	fx.In

	Log           *zap.Logger
	Notifications notificationdomain.Service
}

func NewHandler(p HandlerParam) *Handler {
	return &Handler{
		log:           p.Log.Named("ticket.handler"),
		notifications: p.Notifications,
	}
}

func (h *Handler) Registration() changefeed.Handler {
	return changefeed.Handler{
		Name:       "ticket.notify",
		Collection: changefeed.CollectionTickets,
		Handle:     h.Handle,
	}
}

// Handle applies every classified event in order. Delivery problems are
// logged by the dispatcher and never fail the handler.
func (h *Handler) Handle(ctx context.Context, evt changefeed.ChangeEvent) (err error) {
	ctx, span := tracing.StartSpan(ctx, "ticket", "ticket.handle",
		attribute.String("booking_id", evt.DocumentID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	before, after, err := decodeTickets(evt)
	if err != nil {
		return err
	}

	log := ctxlogger.WithContext(ctx, h.log).With(zap.String("booking_id", evt.DocumentID))
	events := ticketdomain.Classify(before, after)
	if len(events) == 0 {
		log.Debug("ticket.no_events")
		return nil
	}

	bookingID := evt.DocumentID
	for _, e := range events {
		switch e.Kind {
		case ticketdomain.EventCreated:
			h.onCreated(ctx, log, evt.Key, bookingID, *after)
		case ticketdomain.EventAssigned:
			h.onAssigned(ctx, log, evt.Key, bookingID, *after)
		case ticketdomain.EventCustomerStatusChanged:
			h.onCustomerStatus(ctx, log, evt.Key, bookingID, *after, e.Status)
		case ticketdomain.EventEngineerStatusChanged:
			h.onEngineerStatus(ctx, log, evt.Key, bookingID, *after, e.Status)
		}
	}
	return nil
}

func decodeTickets(evt changefeed.ChangeEvent) (*ticketdomain.Ticket, *ticketdomain.Ticket, error) {
	var before, after *ticketdomain.Ticket
	if evt.HasBefore() {
		before = &ticketdomain.Ticket{}
		if err := evt.DecodeBefore(before); err != nil {
			return nil, nil, fmt.Errorf("decode before: %w", err)
		}
	}
	if evt.HasAfter() {
		after = &ticketdomain.Ticket{}
		if err := evt.DecodeAfter(after); err != nil {
			return nil, nil, fmt.Errorf("decode after: %w", err)
		}
	}
	if before == nil && after == nil {
		return nil, nil, errors.Join(changefeed.ErrInvalidEvent, changefeed.ErrNoSnapshot)
	}
	return before, after, nil
}

func (h *Handler) onCreated(ctx context.Context, log *zap.Logger, key tenant.Key, bookingID string, t ticketdomain.Ticket) {
	raisedBy := t.CustomerName
	if raisedBy == "" {
		raisedBy = "a customer"
	}
	payload := notificationdomain.Payload{
		Title: "New Ticket Raised",
		Body:  fmt.Sprintf("A new ticket (%s) has been raised by %s", bookingID, raisedBy),
		Data:  map[string]string{"type": TypeNewTicket, "bookingId": bookingID},
	}
	if _, err := h.notifications.FanOut(ctx, key, tokendomain.RoleAdmin, payload); err != nil {
		log.Warn("ticket.created.fanout_failed", zap.Error(err))
	}
}

func (h *Handler) onAssigned(ctx context.Context, log *zap.Logger, key tenant.Key, bookingID string, t ticketdomain.Ticket) {
	engineer := t.Engineer()
	if engineer == "" {
		log.Warn("ticket.assigned.missing_engineer")
	} else {
		h.notifications.Dispatch(ctx, key, tokendomain.RoleEngineer, engineer, notificationdomain.Payload{
			Title: "New Assignment",
			Body:  fmt.Sprintf("You have been assigned a new task: %s", bookingID),
			Data:  map[string]string{"type": TypeNewAssignment, "bookingId": bookingID},
		})
	}

	if t.CustomerID == "" {
		log.Warn("ticket.assigned.missing_customer")
		return
	}
	title := "Ticket Assigned"
	body := fmt.Sprintf("Your ticket (%s) has been assigned to %s", bookingID, t.AssignedEmployee)
	h.notifications.Dispatch(ctx, key, tokendomain.RoleCustomer, t.CustomerID, notificationdomain.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":         TypeTicketAssigned,
			"bookingId":    bookingID,
			"engineerName": t.AssignedEmployee,
		},
	})
	h.appendBanner(ctx, log, key, notificationdomain.BannerRequest{
		CustomerID: t.CustomerID,
		BookingID:  bookingID,
		Title:      title,
		Body:       body,
		Type:       TypeTicketAssigned,
	})
}

func (h *Handler) onCustomerStatus(ctx context.Context, log *zap.Logger, key tenant.Key, bookingID string, t ticketdomain.Ticket, status string) {
	if t.CustomerID == "" {
		log.Warn("ticket.status.missing_customer")
		return
	}
	title := "Ticket Update"
	body := fmt.Sprintf("Your ticket (%s) status is now: %s", bookingID, status)
	h.notifications.Dispatch(ctx, key, tokendomain.RoleCustomer, t.CustomerID, notificationdomain.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":      TypeStatusUpdate,
			"bookingId": bookingID,
			"status":    status,
		},
	})
	h.appendBanner(ctx, log, key, notificationdomain.BannerRequest{
		CustomerID: t.CustomerID,
		BookingID:  bookingID,
		Title:      title,
		Body:       body,
		Type:       TypeStatusUpdate,
	})
}

func (h *Handler) onEngineerStatus(ctx context.Context, log *zap.Logger, key tenant.Key, bookingID string, t ticketdomain.Ticket, status string) {
	engineer := t.Engineer()
	if engineer == "" {
		engineer = "An engineer"
	}
	if status == "" {
		status = "cleared"
	}
	payload := notificationdomain.Payload{
		Title: "Engineer Update",
		Body:  fmt.Sprintf("%s updated ticket (%s) to: %s", engineer, bookingID, status),
		Data: map[string]string{
			"type":      TypeEngineerStatusUpdate,
			"bookingId": bookingID,
			"status":    status,
		},
	}
	if _, err := h.notifications.FanOut(ctx, key, tokendomain.RoleAdmin, payload); err != nil {
		log.Warn("ticket.engineer_status.fanout_failed", zap.Error(err))
	}
}

func (h *Handler) appendBanner(ctx context.Context, log *zap.Logger, key tenant.Key, req notificationdomain.BannerRequest) {
	if _, err := h.notifications.AppendBanner(ctx, key, req); err != nil {
		log.Warn("ticket.banner_failed", zap.String("type", req.Type), zap.Error(err))
	}
}
