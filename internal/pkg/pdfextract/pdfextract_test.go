package pdfextract_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"quizmint/internal/pkg/pdfextract"
)

// buildPDF assembles a minimal uncompressed PDF. Each element of pages is a
// list of text rows for that page, drawn one per line.
func buildPDF(pages [][]string) []byte {
	streams := make([]string, len(pages))
	for i, rows := range pages {
		var stream strings.Builder
		for j, row := range rows {
			y := 720 - 40*j
			stream.WriteString(fmt.Sprintf("BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, escapePDFString(row)))
		}
		streams[i] = stream.String()
	}
	return buildPDFFromStreams(streams)
}

// buildPDFFromStreams wraps one raw content stream per page in the document
// scaffolding. Fixtures have to be byte-exact (the xref table carries
// offsets), so they are generated rather than checked in.
func buildPDFFromStreams(streams []string) []byte {
	var buf bytes.Buffer
	var offsets []int

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(streams))
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(streams)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, stream := range streams {
		contentRef := 5 + 2*i
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentRef))
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}

var _ = Describe("Extractor", func() {
	var (
		extractor *pdfextract.Extractor
		ctx       context.Context
	)

	BeforeEach(func() {
		extractor = pdfextract.New(pdfextract.Config{})
		ctx = context.Background()
	})

	It("extracts pages in order, one newline-terminated line per page", func() {
		data := buildPDF([][]string{
			{"Cats are mammals. They purr."},
			{"Dogs bark a lot."},
		})

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Cats are mammals. They purr.\nDogs bark a lot.\n"))
	})

	It("yields as many newlines as pages for valid documents", func() {
		data := buildPDF([][]string{
			{"page one"},
			{"page two"},
			{"page three"},
		})

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).NotTo(BeEmpty())
		Expect(strings.Count(text, "\n")).To(Equal(3))
	})

	It("joins text runs within a page with single spaces", func() {
		data := buildPDF([][]string{
			{"Hello", "world"},
		})

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello world\n"))
	})

	It("separates consecutive showings on one baseline with single spaces", func() {
		data := buildPDFFromStreams([]string{
			"BT /F1 12 Tf 72 720 Td (Hello) Tj (world) Tj ET\n",
		})

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello world\n"))
	})

	It("returns an empty string for a zero-page document", func() {
		data := buildPDF(nil)

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(""))
	})

	It("gives pages without extractable text an empty line", func() {
		data := buildPDF([][]string{
			{"has text"},
			{},
		})

		text, err := extractor.Extract(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("has text\n\n"))
	})

	It("rejects payloads that are not PDFs", func() {
		_, err := extractor.Extract(ctx, []byte("definitely not a pdf"))
		Expect(err).To(MatchError(pdfextract.ErrInvalidPDF))
	})

	It("rejects an empty payload", func() {
		_, err := extractor.Extract(ctx, nil)
		Expect(err).To(MatchError(pdfextract.ErrInvalidPDF))
	})

	It("stops when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		data := buildPDF([][]string{{"page"}})
		_, err := extractor.Extract(cancelled, data)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("enforces the configured page limit", func() {
		limited := pdfextract.New(pdfextract.Config{MaxPages: 1})
		data := buildPDF([][]string{{"one"}, {"two"}})

		_, err := limited.Extract(ctx, data)
		Expect(err).To(MatchError(pdfextract.ErrInvalidPDF))
	})
})
