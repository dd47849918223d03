package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/ocr"
)

type fakeOCR struct {
	pages []ocr.Page
	err   error
	calls int
}

func (f *fakeOCR) Process(_ context.Context, _ string) ([]ocr.Page, error) {
	f.calls++
	return f.pages, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(digital func(string) ([]Page, error), ocrClient OCRClient) *Extractor {
	return &Extractor{ocr: ocrClient, digital: digital, logger: testLogger()}
}

func digitalPages(texts ...string) []Page {
	pages := make([]Page, len(texts))
	for i, text := range texts {
		pages[i] = Page{PageIndex: i, Text: text, Source: constants.SourceDigital}
	}
	return pages
}

func TestExtractDigitalSufficientText(t *testing.T) {
	oc := &fakeOCR{err: fmt.Errorf("must not be called")}
	e := newTestExtractor(func(string) ([]Page, error) {
		return digitalPages(
			strings.Repeat("a", 400),
			strings.Repeat("b", 400),
			strings.Repeat("c", 400),
		), nil
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodDigital {
		t.Errorf("method = %q, want %q", res.Method, MethodDigital)
	}
	if res.TotalPages != 3 {
		t.Errorf("total pages = %d, want 3", res.TotalPages)
	}
	if oc.calls != 0 {
		t.Errorf("OCR called %d times, want 0", oc.calls)
	}
	for _, p := range res.Pages {
		if p.Source != constants.SourceDigital {
			t.Errorf("page %d source = %q, want %q", p.PageIndex, p.Source, constants.SourceDigital)
		}
	}
}

func TestExtractThresholdBoundaryStaysDigital(t *testing.T) {
	// Exactly the threshold average: the fallback is strictly below.
	oc := &fakeOCR{err: fmt.Errorf("must not be called")}
	e := newTestExtractor(func(string) ([]Page, error) {
		return digitalPages(strings.Repeat("x", DigitalMinCharsPerPage)), nil
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodDigital {
		t.Errorf("method = %q, want digital at exactly %d chars/page", res.Method, DigitalMinCharsPerPage)
	}
}

func TestExtractLowYieldFallsBackToOCR(t *testing.T) {
	oc := &fakeOCR{pages: []ocr.Page{{Index: 0, Markdown: "# Scanned contract"}}}
	e := newTestExtractor(func(string) ([]Page, error) {
		return digitalPages(strings.Repeat("x", DigitalMinCharsPerPage-1)), nil
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("method = %q, want %q below the yield threshold", res.Method, MethodOCR)
	}
	if oc.calls != 1 {
		t.Errorf("OCR called %d times, want 1", oc.calls)
	}
	if len(res.Pages) != 1 || res.Pages[0].Source != constants.SourceOCR {
		t.Errorf("pages = %+v, want one OCR-sourced page", res.Pages)
	}
	if res.Pages[0].Text != "# Scanned contract" {
		t.Errorf("page text = %q, want the OCR markdown", res.Pages[0].Text)
	}
}

func TestExtractZeroPagesFallsBackToOCR(t *testing.T) {
	oc := &fakeOCR{pages: []ocr.Page{{Index: 0, Markdown: "text"}}}
	e := newTestExtractor(func(string) ([]Page, error) {
		return nil, nil
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("method = %q, want %q for an empty digital result", res.Method, MethodOCR)
	}
}

func TestExtractDigitalErrorFallsBackToOCR(t *testing.T) {
	oc := &fakeOCR{pages: []ocr.Page{{Index: 0, Markdown: "text"}}}
	digitalDelay := 30 * time.Millisecond
	e := newTestExtractor(func(string) ([]Page, error) {
		time.Sleep(digitalDelay)
		return nil, fmt.Errorf("encrypted document")
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("method = %q, want %q after a digital failure", res.Method, MethodOCR)
	}
	// Duration must cover the failed digital attempt too.
	if res.ProcessingTime < digitalDelay {
		t.Errorf("processing time = %v, want >= %v", res.ProcessingTime, digitalDelay)
	}
}

func TestExtractOCRFailurePropagates(t *testing.T) {
	oc := &fakeOCR{err: fmt.Errorf("ocr backend down")}
	e := newTestExtractor(func(string) ([]Page, error) {
		return nil, fmt.Errorf("no text layer")
	}, oc)

	if _, err := e.Extract(context.Background(), "contract.pdf"); err == nil {
		t.Fatal("expected error when both tiers fail")
	}
}

func TestExtractOCRPreservesPageIndexes(t *testing.T) {
	oc := &fakeOCR{pages: []ocr.Page{
		{Index: 0, Markdown: "first"},
		{Index: 1, Markdown: "second"},
		{Index: 2, Markdown: "third"},
	}}
	e := newTestExtractor(func(string) ([]Page, error) {
		return nil, fmt.Errorf("no text layer")
	}, oc)

	res, err := e.Extract(context.Background(), "contract.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.TotalPages != 3 {
		t.Fatalf("total pages = %d, want 3", res.TotalPages)
	}
	for i, p := range res.Pages {
		if p.PageIndex != i {
			t.Errorf("page %d has index %d", i, p.PageIndex)
		}
	}
}

func TestJoinPages(t *testing.T) {
	joined := JoinPages(digitalPages("page one", "page two", "page three"))
	want := "page one\n\n" + PageBreak + "\n\npage two\n\n" + PageBreak + "\n\npage three"
	if joined != want {
		t.Errorf("joined = %q, want %q", joined, want)
	}

	if got := JoinPages(nil); got != "" {
		t.Errorf("joined empty pages = %q, want empty", got)
	}
	if got := JoinPages(digitalPages("only")); got != "only" {
		t.Errorf("single page joined = %q, want no markers", got)
	}
}
