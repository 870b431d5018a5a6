package ocr

import (
	"time"

	"github.com/rupeeback/verify/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ocr",
	fx.Provide(NewExtractor),
)

// NewExtractor picks the OCR provider from configuration, falling back
// to the empty extractor when no provider is set up.
func NewExtractor(cfg config.Config, log *zap.Logger) Extractor {
	timeout := time.Duration(cfg.OCRTimeoutSeconds) * time.Second
	if cfg.GoogleVisionAPIKey != "" {
		log.Info("using google cloud vision for receipt extraction")
		return NewVisionExtractor(cfg.GoogleVisionAPIKey, timeout, log)
	}
	log.Warn("no ocr provider configured, bills will require manual review")
	return NewFallbackExtractor(log)
}
