package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers through Firebase Cloud Messaging.
type FCMSender struct {
	client messagingClient
	log    *zap.Logger
}

func NewFCMSender(client *messaging.Client, log *zap.Logger) *FCMSender {
	return &FCMSender{client: client, log: log.Named("push.fcm")}
}

func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	id, err := s.client.Send(ctx, BuildMessage(msg))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("%w: %v", ErrTokenUnregistered, err)
		}
		return err
	}
	s.log.Debug("push.fcm.sent", zap.String("message_id", id), zap.String("token", Redact(msg.Token)))
	return nil
}

// BuildMessage applies the fixed platform hints to msg.
func BuildMessage(msg Message) *messaging.Message {
	data := make(map[string]string, len(msg.Data))
	for k, v := range msg.Data {
		data[k] = v
	}
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Notification.Title,
			Body:  msg.Notification.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    AndroidChannelID,
				Priority:     messaging.PriorityHigh,
				DefaultSound: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            APNsSound,
				},
			},
		},
	}
}
