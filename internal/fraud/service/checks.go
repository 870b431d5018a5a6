package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rupeeback/verify/internal/fraud/domain"
)

// Score contributions, matching the tuned values of the production
// heuristics. Changing one changes the meaning of the 0-100 scale.
const (
	scoreDuplicateBill       = 50
	scoreDuplicateBillNumber = 40
	scoreDuplicateImage      = 60
	scoreHighFrequency       = 30
	scoreExcessiveDaily      = 20
	scoreHighAmount          = 10
	scoreRoundAmount         = 5
	scoreAboveUserAverage    = 15
	scoreFutureDated         = 40
	scoreExpired             = 30
	scoreVeryRecent          = 5
	scoreMerchantVelocity    = 25
)

const (
	highFrequencyWindow    = time.Hour
	highFrequencyThreshold = 5
	dailyWindow            = 24 * time.Hour
	excessiveDailyMin      = 20
	elevatedDailyMin       = 10
	highAmountThreshold    = 50000
	roundAmountMin         = 5000
	roundAmountStep        = 1000
	averageSampleSize      = 10
	averageMinApproved     = 3
	averageMultiplier      = 5
	expiryAge              = 30 * 24 * time.Hour
	veryRecentAge          = time.Hour
	velocityWindow         = time.Hour
	velocityThreshold      = 5
)

func (s *Service) checkDuplicateBill(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	dup, err := s.bills.FindActiveDuplicate(ctx, s.db, sub.UserID, sub.MerchantID, sub.Amount, sub.BillDate, sub.BillID)
	if err != nil {
		return checkOutcome{}, err
	}
	if dup == nil {
		return checkOutcome{}, nil
	}
	return checkOutcome{score: scoreDuplicateBill, flag: domain.FlagDuplicateBill}, nil
}

func (s *Service) checkDuplicateBillNumber(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	if sub.BillNumber == "" {
		return checkOutcome{}, nil
	}
	dup, err := s.bills.FindActiveByBillNumber(ctx, s.db, sub.UserID, sub.BillNumber, sub.BillID)
	if err != nil {
		return checkOutcome{}, err
	}
	if dup == nil {
		return checkOutcome{}, nil
	}
	return checkOutcome{score: scoreDuplicateBillNumber, flag: domain.FlagDuplicateBillNumber}, nil
}

func (s *Service) checkDuplicateImage(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	if sub.ImageHash == "" {
		return checkOutcome{}, nil
	}
	dup, err := s.bills.FindActiveByImageHash(ctx, s.db, sub.ImageHash, sub.BillID)
	if err != nil {
		return checkOutcome{}, err
	}
	if dup == nil {
		return checkOutcome{}, nil
	}
	return checkOutcome{score: scoreDuplicateImage, flag: domain.FlagDuplicateImage}, nil
}

// checkUploadFrequency counts the user's other bills in the last hour,
// so the threshold trips on the submission after the window fills.
func (s *Service) checkUploadFrequency(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	count, err := s.bills.CountActiveSince(ctx, s.db, sub.UserID, now.Add(-highFrequencyWindow), sub.BillID)
	if err != nil {
		return checkOutcome{}, err
	}
	if count >= highFrequencyThreshold {
		return checkOutcome{score: scoreHighFrequency, flag: domain.FlagHighFrequencyUploads}, nil
	}
	return checkOutcome{}, nil
}

func (s *Service) checkDailyVolume(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	count, err := s.bills.CountActiveSince(ctx, s.db, sub.UserID, now.Add(-dailyWindow), sub.BillID)
	if err != nil {
		return checkOutcome{}, err
	}
	switch {
	case count >= excessiveDailyMin:
		return checkOutcome{score: scoreExcessiveDaily, flag: domain.FlagExcessiveDailyUploads}, nil
	case count >= elevatedDailyMin:
		return checkOutcome{warning: fmt.Sprintf("elevated upload volume: %d bills in the last 24h", count)}, nil
	}
	return checkOutcome{}, nil
}

func (s *Service) checkAmountHeuristics(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	var out checkOutcome
	if sub.Amount > highAmountThreshold {
		out.score += scoreHighAmount
		out.warning = fmt.Sprintf("unusually high amount: %.2f", sub.Amount)
	}
	if sub.Amount >= roundAmountMin && math.Mod(sub.Amount, roundAmountStep) == 0 {
		out.score += scoreRoundAmount
		if out.warning != "" {
			out.warning += "; "
		}
		out.warning += fmt.Sprintf("suspiciously round amount: %.0f", sub.Amount)
	}
	return out, nil
}

func (s *Service) checkAmountVsAverage(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	amounts, err := s.bills.RecentApprovedAmounts(ctx, s.db, sub.UserID, averageSampleSize)
	if err != nil {
		return checkOutcome{}, err
	}
	if len(amounts) < averageMinApproved {
		return checkOutcome{}, nil
	}
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	avg := sum / float64(len(amounts))
	if avg > 0 && sub.Amount > averageMultiplier*avg {
		return checkOutcome{
			score:   scoreAboveUserAverage,
			warning: fmt.Sprintf("amount %.2f exceeds %dx the user's average of %.2f", sub.Amount, averageMultiplier, avg),
		}, nil
	}
	return checkOutcome{}, nil
}

func (s *Service) checkBillDate(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	if sub.BillDate.After(now) {
		return checkOutcome{score: scoreFutureDated, flag: domain.FlagFutureDatedBill}, nil
	}
	age := now.Sub(sub.BillDate)
	if age > expiryAge {
		return checkOutcome{score: scoreExpired, flag: domain.FlagExpiredBill}, nil
	}
	if age < veryRecentAge {
		return checkOutcome{
			score:   scoreVeryRecent,
			warning: "bill dated less than an hour ago",
		}, nil
	}
	return checkOutcome{}, nil
}

func (s *Service) checkMerchantVelocity(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error) {
	count, err := s.bills.CountDistinctMerchantsSince(ctx, s.db, sub.UserID, now.Add(-velocityWindow))
	if err != nil {
		return checkOutcome{}, err
	}
	if count >= velocityThreshold {
		return checkOutcome{score: scoreMerchantVelocity, flag: domain.FlagMultipleMerchantsVelocity}, nil
	}
	return checkOutcome{}, nil
}
