package extract

import (
	"context"
	"strings"
	"time"
)

// Page is one page of extracted text with its provenance tag.
type Page struct {
	PageIndex int
	Text      string
	Source    string // constants.SourceDigital | constants.SourceOCR
}

// Result is the outcome of text extraction for a whole document.
type Result struct {
	Pages          []Page
	TotalPages     int
	Method         string // "digital" | "ocr"
	ProcessingTime time.Duration
}

// TextExtractor is Stage 1: file -> per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// PageBreak separates pages in the joined document text handed to the
// extraction agents; pages are 1-indexed across the markers.
const PageBreak = "---PAGE BREAK---"

// JoinPages flattens pages into the single document text the agents read.
func JoinPages(pages []Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n"+PageBreak+"\n\n")
}
