// Package pdftext linearizes the text of a PDF document.
//
// Documents are validated with pdfcpu and rendered to text with MuPDF
// (go-fitz), which resolves font encodings and ToUnicode maps. Whitespace
// within a page collapses to single spaces and pages are joined with a blank
// line. There is no layout, table or caption awareness.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// DocumentParseError reports bytes that could not be read as a PDF document.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("document parse error: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// Extractor pulls plain text out of PDF bytes.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger uses slog.Default().
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractFullText returns all page texts joined by PageSeparator.
func (e *Extractor) ExtractFullText(ctx context.Context, document []byte) (string, error) {
	pages, err := e.ExtractPages(ctx, document)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, PageSeparator), nil
}

// ExtractPages returns the text of each page in order.
// A page whose text cannot be rendered yields an empty string.
func (e *Extractor) ExtractPages(ctx context.Context, document []byte) ([]string, error) {
	if _, err := e.open(document); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("failed to read page text", "page", i+1, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.Join(strings.Fields(text), " "))
	}

	e.logger.Debug("extracted pdf text", "pages", len(pages))
	return pages, nil
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount(document []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(document), relaxedConfig())
	if err != nil {
		return 0, &DocumentParseError{Err: err}
	}
	return n, nil
}

func (e *Extractor) open(document []byte) (*model.Context, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(document, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, &DocumentParseError{Err: fmt.Errorf("missing %%PDF- header")}
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(document), relaxedConfig())
	if err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	return pdfCtx, nil
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
