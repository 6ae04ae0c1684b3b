package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(undo)
	return logs
}

func TestGormLoggerSkipsPolledTablesOnSuccess(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig(true))
	ctx := context.Background()

	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `SELECT * FROM "document_changes" WHERE published_at IS NULL`, 0
	}, nil)
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `UPDATE "tickets" SET status = ?`, 1
	}, nil)

	entries := logs.FilterMessage("gorm.query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tickets", entries[0].ContextMap()["table"])
	assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
}

func TestGormLoggerReportsFailuresOnPolledTables(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig(false))

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE mail_queue SET attempted_at = ?", -1
	}, errors.New("database is locked"))
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM user_profiles", 0
	}, gormlogger.ErrRecordNotFound)

	entries := logs.FilterMessage("gorm.query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.NotContains(t, entries[0].ContextMap(), "rows_affected")
}

func TestGormLoggerSilentAndLogMode(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig(false))

	silent := l.LogMode(gormlogger.Silent)
	silent.Error(context.Background(), "boom")
	l.Info(context.Background(), "not at warn level")
	l.Warn(context.Background(), "pool exhausted", 3)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "pool exhausted", logs.All()[0].Message)
}

func TestSQLParsing(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH due AS (SELECT 1) SELECT * FROM due"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
	assert.Equal(t, "payment_transactions", tableFromSQL(`INSERT INTO "payment_transactions" (txn_id) VALUES (?)`))
	assert.Equal(t, "", tableFromSQL("PRAGMA foreign_keys = ON"))
}
