package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&changefeed.Change{},
		&tokendomain.NotificationToken{},
		&notificationdomain.Banner{},
		&maildomain.Item{},
		&ticketdomain.Ticket{},
		&paymentdomain.Transaction{},
		&subscriptiondomain.Subscription{},
		&profiledomain.UserProfile{},
		&otpdomain.Code{},
	}
}

// Migrate brings the schema up to date. Postgres uses the versioned SQL
// migrations; mysql and sqlite are migrated from the models.
func Migrate(db *gorm.DB, dbType string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if dbType != "postgres" {
		if err := db.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
