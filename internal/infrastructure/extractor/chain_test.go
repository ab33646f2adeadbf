package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

type extractorFake struct {
	text  string
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	f.calls++
	return f.text, f.err
}

func pdfOnly(doc *domain.Document) bool {
	return strings.HasSuffix(doc.Name, ".pdf")
}

func TestChainPrefersRemote(t *testing.T) {
	remote := &extractorFake{text: "remote"}
	local := &extractorFake{text: "local"}
	chain := NewChain(remote, nil, Route{Name: "pdf", Supports: pdfOnly, Extractor: local})

	got, err := chain.Extract(context.Background(), &domain.Document{Name: "a.pdf"})
	if err != nil || got != "remote" {
		t.Fatalf("Extract() = %q, %v", got, err)
	}
	if local.calls != 0 {
		t.Fatalf("local extractor should not run")
	}
}

func TestChainFallsBackToLocalRoute(t *testing.T) {
	remote := &extractorFake{err: errors.New("unreachable")}
	pdf := &extractorFake{text: "from pdf"}
	text := &extractorFake{text: "from text"}
	chain := NewChain(remote, nil,
		Route{Name: "pdf", Supports: pdfOnly, Extractor: pdf},
		Route{Name: "plaintext", Extractor: text},
	)

	got, err := chain.Extract(context.Background(), &domain.Document{Name: "notes.txt"})
	if err != nil || got != "from text" {
		t.Fatalf("Extract() = %q, %v", got, err)
	}
	if pdf.calls != 0 {
		t.Fatalf("pdf route should be skipped")
	}
}

func TestChainRejectsUnsupportedDocument(t *testing.T) {
	chain := NewChain(nil, nil, Route{Name: "pdf", Supports: pdfOnly, Extractor: &extractorFake{}})

	_, err := chain.Extract(context.Background(), &domain.Document{Name: "photo.heic"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
