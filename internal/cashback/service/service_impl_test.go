package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rupeeback/verify/internal/cashback/domain"
	"github.com/rupeeback/verify/internal/cashback/repository"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const entriesSchema = `
CREATE TABLE cashback_entries (
	id INTEGER PRIMARY KEY,
	bill_id INTEGER NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	merchant_id INTEGER NOT NULL,
	bill_amount REAL NOT NULL,
	percent REAL NOT NULL,
	amount REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(entriesSchema).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      db,
		Log:     zaptest.NewLogger(t),
		Clock:   clock.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		Node:    node,
		Entries: repository.Provide(),
	}).(*Service)
	return svc, db
}

func TestBillApprovedWritesEntry(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	billID := svc.node.Generate()
	amount, err := svc.BillApproved(ctx, billID, svc.node.Generate(), svc.node.Generate(), 1000, 5)
	require.NoError(t, err)
	assert.Equal(t, 50.0, amount)

	var entry domain.Entry
	require.NoError(t, db.Where("bill_id = ?", billID).First(&entry).Error)
	assert.Equal(t, 50.0, entry.Amount)
	assert.Equal(t, domain.EntryPending, entry.Status)
}

func TestBillApprovedIdempotent(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	billID := svc.node.Generate()
	userID := svc.node.Generate()
	merchantID := svc.node.Generate()

	first, err := svc.BillApproved(ctx, billID, userID, merchantID, 1000, 5)
	require.NoError(t, err)
	second, err := svc.BillApproved(ctx, billID, userID, merchantID, 1000, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&domain.Entry{}).Where("bill_id = ?", billID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestComputeRounding(t *testing.T) {
	assert.Equal(t, 33.33, domain.Compute(666.66, 5))
	assert.Equal(t, 0.0, domain.Compute(0, 5))
	assert.Equal(t, 0.0, domain.Compute(100, 0))
}
