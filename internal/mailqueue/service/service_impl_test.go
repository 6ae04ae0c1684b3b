package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/dbtest"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/mailqueue/repository"
	"github.com/smallbiznis/ticketflow/internal/providers/email"
	"github.com/smallbiznis/ticketflow/internal/providers/email/emailtest"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testKey = tenant.Key{TenantID: "t1", AppID: "a1"}

func newTestService(t *testing.T) (*Service, *gorm.DB, *emailtest.Transport) {
	t.Helper()
	db := dbtest.Open(t, &maildomain.Item{}, &changefeed.Change{})
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	node := dbtest.Node(t)
	transport := &emailtest.Transport{}
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Recorder:  changefeed.NewRecorder(node, clk),
		Transport: transport,
	}).(*Service)
	return svc, db, transport
}

func pendingChange(t *testing.T, db *gorm.DB, item maildomain.Item) changefeed.ChangeEvent {
	t.Helper()
	var row changefeed.Change
	require.NoError(t, db.Where("collection = ? AND document_id = ?", changefeed.CollectionMail, item.ID.String()).Take(&row).Error)
	return changefeed.ChangeEvent{
		ID:         row.ID.String(),
		Key:        testKey,
		Collection: row.Collection,
		DocumentID: row.DocumentID,
		After:      []byte(row.AfterDoc),
		CreatedAt:  row.CreatedAt,
	}
}

func TestEnqueueRecordsChangeEvent(t *testing.T) {
	svc, db, _ := newTestService(t)

	item, err := svc.Enqueue(context.Background(), testKey, maildomain.Message{
		To:      "payer@example.com",
		Subject: "Receipt",
		HTML:    "<p>ok</p>",
		Attachments: []email.Attachment{
			{Filename: "r.pdf", Content: "JVBERg==", ContentType: "application/pdf"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, maildomain.StatusPending, item.Status)

	evt := pendingChange(t, db, item)
	assert.False(t, evt.HasBefore())

	var snap maildomain.Snapshot
	require.NoError(t, evt.DecodeAfter(&snap))
	assert.Equal(t, item.ID, snap.ID)
	assert.Equal(t, "payer@example.com", snap.To)
}

func TestEnqueueValidates(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Enqueue(context.Background(), testKey, maildomain.Message{Subject: "x"})
	assert.ErrorIs(t, err, maildomain.ErrInvalidRecipient)
	_, err = svc.Enqueue(context.Background(), testKey, maildomain.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, maildomain.ErrInvalidSubject)
}

func TestHandleCreatedDeliversOnce(t *testing.T) {
	svc, db, transport := newTestService(t)
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, testKey, maildomain.Message{To: "a@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	evt := pendingChange(t, db, item)

	require.NoError(t, svc.HandleCreated(ctx, evt))
	require.NoError(t, svc.HandleCreated(ctx, evt))

	assert.Len(t, transport.Sent(), 1)

	var stored maildomain.Item
	require.NoError(t, db.Take(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, maildomain.StatusSent, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)
}

func TestHandleCreatedStampsErrorWithoutRetry(t *testing.T) {
	svc, db, transport := newTestService(t)
	ctx := context.Background()
	transport.Err = errors.New("smtp: 550 mailbox unavailable")

	item, err := svc.Enqueue(ctx, testKey, maildomain.Message{To: "a@example.com", Subject: "Hi"})
	require.NoError(t, err)
	evt := pendingChange(t, db, item)

	require.NoError(t, svc.HandleCreated(ctx, evt))

	var stored maildomain.Item
	require.NoError(t, db.Take(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, maildomain.StatusError, stored.Status)
	assert.Contains(t, stored.Error, "mailbox unavailable")

	transport.Err = nil
	require.NoError(t, svc.HandleCreated(ctx, evt))
	assert.Empty(t, transport.Sent())

	list, err := svc.ListErrored(ctx, testKey, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, item.ID, list.Items[0].ID)
}

func TestHandleCreatedIgnoresUpdates(t *testing.T) {
	svc, _, transport := newTestService(t)

	evt := changefeed.ChangeEvent{
		Key:        testKey,
		Collection: changefeed.CollectionMail,
		DocumentID: "1",
		Before:     []byte(`{"id":"1","status":""}`),
		After:      []byte(`{"id":"1","status":"SENT"}`),
	}
	require.NoError(t, svc.HandleCreated(context.Background(), evt))
	assert.Empty(t, transport.Sent())
}

func TestListErroredPages(t *testing.T) {
	svc, _, transport := newTestService(t)
	ctx := context.Background()
	transport.Err = errors.New("down")

	for i := 0; i < 3; i++ {
		item, err := svc.Enqueue(ctx, testKey, maildomain.Message{To: "a@example.com", Subject: "Hi"})
		require.NoError(t, err)
		require.NoError(t, svc.HandleCreated(ctx, pendingChange(t, svc.db, item)))
	}

	first, err := svc.ListErrored(ctx, testKey, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.True(t, first.HasMore)

	second, err := svc.ListErrored(ctx, testKey, pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
	assert.NotEqual(t, first.Items[0].ID, second.Items[0].ID)

	_, err = svc.ListErrored(ctx, testKey, pagination.Pagination{PageToken: "!!"})
	assert.ErrorIs(t, err, maildomain.ErrInvalidPageToken)
}

func TestHandleCreatedStampsWhenSendContextCancelled(t *testing.T) {
	svc, db, transport := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport.OnSend = func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}

	item, err := svc.Enqueue(ctx, testKey, maildomain.Message{To: "a@example.com", Subject: "Hi"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleCreated(ctx, pendingChange(t, db, item)))

	var stored maildomain.Item
	require.NoError(t, db.Take(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, maildomain.StatusError, stored.Status)
	assert.Contains(t, stored.Error, "context canceled")

	list, err := svc.ListErrored(context.Background(), testKey, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, item.ID, list.Items[0].ID)
}

func TestListErroredIncludesStalledClaims(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	clk := svc.clock.(*clock.FakeClock)

	item, err := svc.Enqueue(ctx, testKey, maildomain.Message{To: "a@example.com", Subject: "Hi"})
	require.NoError(t, err)
	claimed, err := svc.repo.MarkAttempted(ctx, db, testKey, item.ID, clk.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	list, err := svc.ListErrored(ctx, testKey, pagination.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	clk.Advance(stalledAfter + time.Minute)
	list, err = svc.ListErrored(ctx, testKey, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, maildomain.StatusPending, list.Items[0].Status)
}
