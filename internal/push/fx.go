package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/smallbiznis/ticketflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var Module = fx.Module("push",
	fx.Provide(NewFirebaseApp),
	fx.Provide(NewSender),
)

// NewFirebaseApp returns nil when no Firebase project is configured.
func NewFirebaseApp(cfg config.Config) (*firebase.App, error) {
	if cfg.Push.ProjectID == "" && cfg.Push.CredentialsFile == "" {
		return nil, nil
	}
	var opts []option.ClientOption
	if cfg.Push.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Push.CredentialsFile))
	}
	app, err := firebase.NewApp(context.Background(), &firebase.Config{ProjectID: cfg.Push.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

func NewSender(cfg config.Config, app *firebase.App, log *zap.Logger) (Sender, error) {
	if cfg.Push.Driver != "fcm" {
		return NewLogSender(log), nil
	}
	if app == nil {
		return nil, fmt.Errorf("push driver fcm requires FIREBASE_PROJECT_ID or GOOGLE_APPLICATION_CREDENTIALS")
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return NewFCMSender(client, log), nil
}
