package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() ticketdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, bookingID string) (*ticketdomain.Ticket, error) {
	var ticket ticketdomain.Ticket
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND booking_id = ?", key.TenantID, key.AppID, bookingID).
		Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, ticket *ticketdomain.Ticket) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "app_id"}, {Name: "booking_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"customer_name",
			"assigned_employee",
			"engineer_status",
			"admin_status",
			"updated_at",
		}),
	}).Create(ticket).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, key tenant.Key, bookingID string) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND booking_id = ?", key.TenantID, key.AppID, bookingID).
		Delete(&ticketdomain.Ticket{}).Error
}
