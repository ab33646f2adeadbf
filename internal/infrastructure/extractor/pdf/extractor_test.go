package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// textPDF builds an uncompressed PDF with one page per entry, each page
// showing its lines in Helvetica.
func textPDF(pages ...[]string) []byte {
	pageCount := len(pages)
	fontID := 3 + 2*pageCount

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
	}
	kids := make([]string, 0, pageCount)
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount))

	for i, lines := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL")
		for j, line := range lines {
			if j > 0 {
				content.WriteString(" T*")
			}
			fmt.Fprintf(&content, " (%s) Tj", line)
		}
		content.WriteString(" ET")

		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractTextReadsTextLayer(t *testing.T) {
	data := textPDF([]string{"Job title: Software Developer", "SOC code: 2136"})

	text, err := ExtractText(data, 10)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	for _, want := range []string{"Job title: Software Developer", "SOC code: 2136"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in extracted text %q", want, text)
		}
	}
}

func TestExtractTextStopsAtPageLimit(t *testing.T) {
	data := textPDF([]string{"Gross pay: 2500.00"}, []string{"Gross pay: 1800.00"})

	text, err := ExtractText(data, 1)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(text, "2500.00") || strings.Contains(text, "1800.00") {
		t.Fatalf("expected first page only, got %q", text)
	}
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	if _, err := ExtractText([]byte("plain text, not a pdf"), 10); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestSupports(t *testing.T) {
	cases := []struct {
		doc  domain.Document
		want bool
	}{
		{doc: domain.Document{Name: "CoS.PDF"}, want: true},
		{doc: domain.Document{Name: "scan", MimeType: "application/pdf"}, want: true},
		{doc: domain.Document{Name: "cv.docx"}, want: false},
	}
	for _, tc := range cases {
		if got := Supports(&tc.doc); got != tc.want {
			t.Fatalf("Supports(%s) = %v, want %v", tc.doc.Name, got, tc.want)
		}
	}
}
