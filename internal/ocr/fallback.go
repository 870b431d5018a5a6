package ocr

import (
	"context"

	"go.uber.org/zap"
)

// FallbackExtractor is used when no OCR provider is configured. It
// returns an empty extraction at zero confidence, which routes every
// bill to manual review.
type FallbackExtractor struct {
	log *zap.Logger
}

func NewFallbackExtractor(log *zap.Logger) *FallbackExtractor {
	return &FallbackExtractor{log: log.Named("ocr.fallback")}
}

func (e *FallbackExtractor) Extract(ctx context.Context, imageURL string) (Result, error) {
	e.log.Debug("no ocr provider configured, returning empty extraction")
	return Result{
		Success:    true,
		Data:       &BillData{},
		Confidence: 0,
	}, nil
}
