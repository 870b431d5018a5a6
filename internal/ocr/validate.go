package ocr

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	amountVariancePercent  = 10
	dateVarianceDays       = 7
	merchantNameSimilarity = 0.5
)

// Claim is the user-supplied data the extraction is validated against.
type Claim struct {
	Amount       float64
	BillDate     time.Time
	MerchantName string
}

// Validate compares extracted fields with the user's claim and returns
// human-readable warnings for each disagreement. Warnings route the bill
// to manual review; they never reject it outright.
func Validate(data *BillData, claim Claim) []string {
	if data == nil {
		return nil
	}

	var warnings []string

	if data.Amount > 0 && claim.Amount > 0 {
		variance := math.Abs(data.Amount-claim.Amount) / claim.Amount * 100
		if variance > amountVariancePercent {
			warnings = append(warnings, fmt.Sprintf(
				"amount mismatch: receipt shows %.2f, user entered %.2f", data.Amount, claim.Amount))
		}
	}

	if data.Date != nil && !claim.BillDate.IsZero() {
		diff := data.Date.Sub(claim.BillDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > dateVarianceDays*24*time.Hour {
			warnings = append(warnings, fmt.Sprintf(
				"date mismatch: receipt shows %s, user entered %s",
				data.Date.Format("2006-01-02"), claim.BillDate.Format("2006-01-02")))
		}
	}

	if data.MerchantName != "" && claim.MerchantName != "" {
		similarity := stringSimilarity(
			strings.ToLower(data.MerchantName),
			strings.ToLower(claim.MerchantName))
		if similarity < merchantNameSimilarity {
			warnings = append(warnings, fmt.Sprintf(
				"merchant mismatch: receipt shows %q, user selected %q",
				data.MerchantName, claim.MerchantName))
		}
	}

	return warnings
}

// AmountMatches reports whether the extracted amount agrees with the
// claim within the given tolerance percentage.
func AmountMatches(data *BillData, claimed float64, tolerancePercent float64) bool {
	if data == nil || data.Amount <= 0 || claimed <= 0 {
		return false
	}
	variance := math.Abs(data.Amount-claimed) / claimed * 100
	return variance <= tolerancePercent
}

// DateMatches reports whether the extracted date agrees with the claim
// within the given tolerance window.
func DateMatches(data *BillData, claimed time.Time, toleranceDays int) bool {
	if data == nil || data.Date == nil || claimed.IsZero() {
		return false
	}
	diff := data.Date.Sub(claimed)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceDays)*24*time.Hour
}

func stringSimilarity(a, b string) float64 {
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	if len(longer) == 0 {
		return 1.0
	}
	return float64(len(longer)-levenshtein(longer, shorter)) / float64(len(longer))
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j-1]+cost, min(curr[j-1]+1, prev[j]+1))
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
