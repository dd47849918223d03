package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/buildhub/contract-reconciler/constants"
)

// readPDFPages parses the embedded text layer of the PDF at path.
// The pdf package panics on some malformed files; that is converted to an
// error so the caller can fall back to OCR.
func readPDFPages(path string) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	total := reader.NumPage()
	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			if t, perr := page.GetPlainText(nil); perr == nil {
				text = t
			}
			// unreadable pages stay empty; the caller's yield check decides
		}
		pages = append(pages, Page{
			PageIndex: i - 1,
			Text:      text,
			Source:    constants.SourceDigital,
		})
	}
	return pages, nil
}
