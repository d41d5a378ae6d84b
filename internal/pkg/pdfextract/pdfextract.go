package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF marks a payload that could not be parsed as a PDF. The
// failure is scoped to the single extraction attempt; the caller may retry
// with a different file.
var ErrInvalidPDF = errors.New("invalid or corrupted pdf")

// Config holds extractor settings. Nothing here is ever mutated process-wide;
// each Extractor owns its own copy.
type Config struct {
	// MaxPages caps the number of pages walked per document. Zero means
	// no limit.
	MaxPages int
}

// Extractor converts a PDF payload into a single text string, page by page.
type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract parses data as a paged PDF document and concatenates its text.
// Text runs within a page are joined with single spaces; every page
// contributes its text followed by a newline, so a page without extractable
// text yields an empty line. A zero-page document yields the empty string.
//
// The context is checked between pages so large documents can be cancelled;
// extraction stops with ctx.Err() and no partial result.
func (e *Extractor) Extract(ctx context.Context, data []byte) (out string, err error) {
	// The underlying parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidPDF)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	total := reader.NumPage()
	if e.cfg.MaxPages > 0 && total > e.cfg.MaxPages {
		return "", fmt.Errorf("%w: %d pages exceeds limit of %d", ErrInvalidPDF, total, e.cfg.MaxPages)
	}

	var b strings.Builder
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		b.WriteString(e.pageText(reader.Page(i)))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// pageText joins a page's text runs with single spaces. Each text showing is
// one run, even when several share a baseline. Pages that carry no
// extractable text (images only, null page objects) come back empty.
func (e *Extractor) pageText(p pdf.Page) string {
	if p.V.IsNull() {
		return ""
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return ""
	}

	var runs []string
	for _, row := range rows {
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			runs = append(runs, t.S)
		}
	}
	return strings.Join(runs, " ")
}
