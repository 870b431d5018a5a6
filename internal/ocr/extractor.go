// Package ocr extracts structured purchase data from receipt images.
package ocr

import (
	"context"
	"time"
)

// LineItem is one purchased item read off the receipt.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// BillData holds the fields parsed out of a receipt.
type BillData struct {
	MerchantName   string     `json:"merchantName,omitempty"`
	Amount         float64    `json:"amount,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	BillNumber     string     `json:"billNumber,omitempty"`
	Items          []LineItem `json:"items,omitempty"`
	TaxAmount      float64    `json:"taxAmount,omitempty"`
	DiscountAmount float64    `json:"discountAmount,omitempty"`
}

// Result is the outcome of one extraction attempt. Confidence is in
// [0, 1]; callers treat low confidence as grounds for manual review,
// never as grounds for automatic approval.
type Result struct {
	Success    bool      `json:"success"`
	Data       *BillData `json:"data,omitempty"`
	Confidence float64   `json:"confidence"`
	RawText    string    `json:"rawText,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// Extractor is the pluggable OCR capability. Implementations bound their
// own network work by the passed context.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (Result, error)
}
