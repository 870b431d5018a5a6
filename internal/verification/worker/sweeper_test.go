package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	billrepo "github.com/rupeeback/verify/internal/bill/repository"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const billsSchema = `
CREATE TABLE IF NOT EXISTS bills (
	id BIGINT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	merchant_id BIGINT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT DEFAULT '',
	image_hash TEXT DEFAULT '',
	storage_id TEXT DEFAULT '',
	amount REAL NOT NULL,
	bill_date TIMESTAMP NOT NULL,
	bill_number TEXT DEFAULT '',
	notes TEXT DEFAULT '',
	extracted_data TEXT,
	ocr_confidence REAL NOT NULL DEFAULT 0,
	verification_status TEXT NOT NULL DEFAULT 'pending',
	verification_method TEXT DEFAULT '',
	rejection_reason TEXT DEFAULT '',
	cashback_amount REAL NOT NULL DEFAULT 0,
	cashback_percent REAL NOT NULL DEFAULT 0,
	cashback_status TEXT NOT NULL DEFAULT 'pending',
	cashback_credited_at TIMESTAMP,
	fraud_score INTEGER NOT NULL DEFAULT 0,
	fraud_flags TEXT,
	reviewed_by BIGINT,
	reviewed_at TIMESTAMP,
	resubmission_count INTEGER NOT NULL DEFAULT 0,
	resubmission_history TEXT,
	is_active BOOLEAN NOT NULL DEFAULT true,
	processing_started_at TIMESTAMP,
	processing_completed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

type sweeperFixture struct {
	sweeper *Sweeper
	pool    *Pool
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
}

func setupSweeper(t *testing.T) *sweeperFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec(billsSchema).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))

	// The pool is deliberately never started: enqueued IDs stay in the
	// channel where the test can count them.
	pool := newPool(t, &stubService{}, 1, 16)
	sweeper := NewSweeper(SweeperParams{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Clock: clk,
		Bills: billrepo.Provide(),
		Pool:  pool,
	})

	return &sweeperFixture{sweeper: sweeper, pool: pool, db: db, node: node, clock: clk}
}

func (f *sweeperFixture) insertBill(t *testing.T, status billdomain.VerificationStatus, age time.Duration, startedAgo time.Duration) *billdomain.Bill {
	t.Helper()
	bill := &billdomain.Bill{
		ID:                 f.node.Generate(),
		UserID:             f.node.Generate(),
		MerchantID:         f.node.Generate(),
		ImageURL:           "/images/x.jpg",
		Amount:             500,
		BillDate:           f.clock.Now().Add(-48 * time.Hour),
		VerificationStatus: status,
		CashbackStatus:     billdomain.CashbackPending,
		IsActive:           true,
		CreatedAt:          f.clock.Now().Add(-age),
		UpdatedAt:          f.clock.Now().Add(-age),
	}
	if startedAgo > 0 {
		started := f.clock.Now().Add(-startedAgo)
		bill.ProcessingStartedAt = &started
	}
	require.NoError(t, f.db.Create(bill).Error)
	return bill
}

func (f *sweeperFixture) reload(t *testing.T, id snowflake.ID) *billdomain.Bill {
	t.Helper()
	var bill billdomain.Bill
	require.NoError(t, f.db.Where("id = ?", id).Take(&bill).Error)
	return &bill
}

func TestSweepRequeuesStalePending(t *testing.T) {
	f := setupSweeper(t)
	stale := f.insertBill(t, billdomain.StatusPending, 10*time.Minute, 0)
	f.insertBill(t, billdomain.StatusPending, time.Second, 0) // too fresh

	f.sweeper.sweep(context.Background())

	require.Len(t, f.pool.jobs, 1)
	assert.Equal(t, stale.ID, <-f.pool.jobs)
}

func TestSweepReleasesStuckProcessing(t *testing.T) {
	f := setupSweeper(t)
	stuck := f.insertBill(t, billdomain.StatusProcessing, 30*time.Minute, 15*time.Minute)
	inFlight := f.insertBill(t, billdomain.StatusProcessing, 5*time.Minute, time.Minute)

	f.sweeper.sweep(context.Background())

	got := f.reload(t, stuck.ID)
	assert.Equal(t, billdomain.StatusPending, got.VerificationStatus)
	assert.Nil(t, got.ProcessingStartedAt)

	// A run inside the grace period keeps its claim.
	assert.Equal(t, billdomain.StatusProcessing, f.reload(t, inFlight.ID).VerificationStatus)

	require.Len(t, f.pool.jobs, 1)
	assert.Equal(t, stuck.ID, <-f.pool.jobs)
}

func TestSweepSkipsManualReviewBills(t *testing.T) {
	f := setupSweeper(t)
	bill := f.insertBill(t, billdomain.StatusPending, 10*time.Minute, 0)
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Where("id = ?", bill.ID).
		Update("verification_method", billdomain.MethodManual).Error)

	f.sweeper.sweep(context.Background())

	assert.Empty(t, f.pool.jobs)
}
