// Package extractor picks a text extractor for each stored document.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
)

// Route pairs an extractor with the documents it accepts.
type Route struct {
	Name      string
	Supports  func(doc *domain.Document) bool
	Extractor ports.TextExtractor
}

// Chain tries the remote parser first when present, then the first local route
// that accepts the document.
type Chain struct {
	remote ports.TextExtractor
	routes []Route
	logger *slog.Logger
}

func NewChain(remote ports.TextExtractor, logger *slog.Logger, routes ...Route) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{remote: remote, routes: routes, logger: logger}
}

func (c *Chain) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if c.remote != nil {
		text, err := c.remote.Extract(ctx, doc)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			c.logger.Warn("remote_extract_failed", "document_id", doc.ID, "name", doc.Name, "error", err.Error())
		}
	}

	for _, route := range c.routes {
		if route.Supports != nil && !route.Supports(doc) {
			continue
		}
		text, err := route.Extractor.Extract(ctx, doc)
		if err != nil {
			return "", fmt.Errorf("%s extract: %w", route.Name, err)
		}
		return text, nil
	}

	return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no extractor for "+doc.Name))
}
