package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:grand total|net total|bill amount|total|amount)[:\s]*(?:rs\.?|₹)?\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)(?:rs\.?|₹)\s*([\d,]+\.?\d*)`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})`),
	regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`),
}

var billNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:invoice|bill|receipt)\s*(?:no|number|#)[:.\s]*([A-Z0-9\-/]+)`),
	regexp.MustCompile(`(?i)(?:no|#)[:.\s]*([A-Z0-9\-/]{3,})`),
}

var taxPattern = regexp.MustCompile(`(?i)(?:cgst|sgst|igst|tax|gst|vat)[:\s]*(?:rs\.?|₹)?\s*([\d,]+\.?\d*)`)

var discountPattern = regexp.MustCompile(`(?i)(?:discount|savings)[:\s]*(?:rs\.?|₹)?\s*([\d,]+\.?\d*)`)

// ParseReceiptText extracts bill fields from raw OCR text. The returned
// confidence is the fraction of the four key fields (merchant, amount,
// date, bill number) that were found.
func ParseReceiptText(text string) (*BillData, float64) {
	data := &BillData{}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			// Merchant name is almost always the header line.
			data.MerchantName = trimmed
			break
		}
	}

	for _, pattern := range amountPatterns {
		if amount, ok := matchAmount(pattern, text); ok {
			data.Amount = amount
			break
		}
	}

	if date := parseDate(text); date != nil {
		data.Date = date
	}

	for _, pattern := range billNumberPatterns {
		if m := pattern.FindStringSubmatch(text); len(m) > 1 {
			data.BillNumber = strings.TrimSpace(m[1])
			break
		}
	}

	if tax, ok := matchAmount(taxPattern, text); ok {
		data.TaxAmount = tax
	}
	if discount, ok := matchAmount(discountPattern, text); ok {
		data.DiscountAmount = discount
	}

	fields := 0
	if data.MerchantName != "" {
		fields++
	}
	if data.Amount > 0 {
		fields++
	}
	if data.Date != nil {
		fields++
	}
	if data.BillNumber != "" {
		fields++
	}

	return data, float64(fields) / 4
}

func matchAmount(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

func parseDate(text string) *time.Time {
	for i, pattern := range datePatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) < 4 {
			continue
		}

		var day, month, year int
		if i == 1 || len(m[1]) == 4 {
			// YYYY/MM/DD
			year, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			day, _ = strconv.Atoi(m[3])
		} else {
			// DD/MM/YYYY, the common receipt format here
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		}

		if year < 100 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}

		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &date
	}
	return nil
}
