package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rupeeback/verify/internal/cashback/domain"
	"github.com/rupeeback/verify/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Node    *snowflake.Node
	Entries domain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	node    *snowflake.Node
	entries domain.Repository
}

func New(p Params) domain.Notifier {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("cashback.service"),
		clock:   p.Clock,
		node:    p.Node,
		entries: p.Entries,
	}
}

// BillApproved writes one ledger entry for an approved bill. Repeated
// calls for the same bill keep the original entry.
func (s *Service) BillApproved(ctx context.Context, billID, userID, merchantID snowflake.ID, billAmount, percent float64) (float64, error) {
	amount := domain.Compute(billAmount, percent)

	existing, err := s.entries.FindByBillID(ctx, s.db, billID)
	if err != nil {
		return amount, err
	}
	if existing != nil {
		return existing.Amount, nil
	}

	now := s.clock.Now()
	entry := &domain.Entry{
		ID:         s.node.Generate(),
		BillID:     billID,
		UserID:     userID,
		MerchantID: merchantID,
		BillAmount: billAmount,
		Percent:    percent,
		Amount:     amount,
		Status:     domain.EntryPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.entries.Insert(ctx, s.db, entry); err != nil {
		return amount, err
	}

	s.log.Info("cashback recorded",
		zap.Int64("bill_id", int64(billID)),
		zap.Int64("user_id", int64(userID)),
		zap.Float64("amount", amount),
	)
	return amount, nil
}
