package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/ocr"
)

// DigitalMinCharsPerPage is the average text yield below which a digital
// extraction is treated as a scanned-image PDF. The boundary is
// exclusive: exactly the threshold does not fall back.
const DigitalMinCharsPerPage = 100

// Extraction methods recorded on the result.
const (
	MethodDigital = "digital"
	MethodOCR     = "ocr"
)

// OCRClient is the document OCR dependency, stubbed in tests.
type OCRClient interface {
	Process(ctx context.Context, path string) ([]ocr.Page, error)
}

// Extractor implements the two-tier digital/OCR strategy: try the
// embedded text layer first, fall back to OCR when it fails outright or
// yields too little text per page.
type Extractor struct {
	ocr     OCRClient
	digital func(path string) ([]Page, error) // stubbed in tests
	logger  *slog.Logger
}

func NewExtractor(ocrClient OCRClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		ocr:     ocrClient,
		digital: readPDFPages,
		logger:  logger,
	}
}

// Extract produces per-page text for the PDF at path. Digital failures
// are swallowed and logged; an OCR failure propagates because no further
// fallback exists.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	pages, err := e.digital(path)
	if err != nil || len(pages) == 0 {
		e.logger.Warn("extract.digital.unusable",
			"path", path,
			"pages", len(pages),
			"error", err,
		)
		return e.ocrFallback(ctx, path, start)
	}

	totalChars := 0
	for _, p := range pages {
		totalChars += len(p.Text)
	}
	avg := float64(totalChars) / float64(len(pages))
	if avg < DigitalMinCharsPerPage {
		e.logger.Info("extract.digital.low_yield",
			"path", path,
			"pages", len(pages),
			"avg_chars_per_page", avg,
		)
		return e.ocrFallback(ctx, path, start)
	}

	res := Result{
		Pages:          pages,
		TotalPages:     len(pages),
		Method:         MethodDigital,
		ProcessingTime: time.Since(start),
	}
	e.logger.Info("extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.TotalPages,
		"elapsed_ms", res.ProcessingTime.Milliseconds(),
	)
	return res, nil
}

// ocrFallback keeps the original start time so the reported duration
// covers the failed digital attempt too.
func (e *Extractor) ocrFallback(ctx context.Context, path string, start time.Time) (Result, error) {
	ocrPages, err := e.ocr.Process(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("ocr fallback: %w", err)
	}

	pages := make([]Page, len(ocrPages))
	for i, p := range ocrPages {
		pages[i] = Page{
			PageIndex: p.Index,
			Text:      p.Markdown,
			Source:    constants.SourceOCR,
		}
	}
	res := Result{
		Pages:          pages,
		TotalPages:     len(pages),
		Method:         MethodOCR,
		ProcessingTime: time.Since(start),
	}
	e.logger.Info("extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.TotalPages,
		"elapsed_ms", res.ProcessingTime.Milliseconds(),
	)
	return res, nil
}
