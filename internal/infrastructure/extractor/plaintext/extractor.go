package plaintext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

const maxTextBytes = 4 << 20

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract returns the stored body when it is valid UTF-8.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract plain text", errors.New("not utf-8 text: "+doc.Name))
	}
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n")), nil
}

// Supports reports whether the document looks like plain text.
func Supports(doc *domain.Document) bool {
	mime := strings.ToLower(doc.MimeType)
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	name := strings.ToLower(doc.Name)
	for _, ext := range []string{".txt", ".csv", ".md", ".eml"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
