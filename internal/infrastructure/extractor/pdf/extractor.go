// Package pdf reads the text layer of uploaded PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

const maxPDFBytes = 32 << 20

type Extractor struct {
	storage  ports.ObjectStorage
	maxPages int
}

func NewExtractor(storage ports.ObjectStorage, maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = 50
	}
	return &Extractor{storage: storage, maxPages: maxPages}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return ExtractText(data, e.maxPages)
}

// ExtractText returns the plain text of up to maxPages pages. Scanned pages
// without a text layer contribute nothing.
func ExtractText(data []byte, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	doc, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}

	var builder strings.Builder
	total := doc.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return strings.TrimSpace(builder.String()), nil
}

func Supports(doc *domain.Document) bool {
	return strings.EqualFold(doc.MimeType, "application/pdf") || strings.HasSuffix(strings.ToLower(doc.Name), ".pdf")
}
