// Package docparse calls the optional remote document parsing service.
package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/core/ports"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/resilience"
)

const (
	maxUploadBytes = 32 << 20
	operationName  = "docparse.parse"
)

type Client struct {
	baseURL    string
	storage    ports.ObjectStorage
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, storage ports.ObjectStorage, timeout time.Duration, cfg resilience.Config, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storage:    storage,
		httpClient: &http.Client{Timeout: timeout},
		executor:   resilience.NewExecutor(cfg, logger),
	}
}

type parseResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

func (c *Client) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := c.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxUploadBytes))
	_ = reader.Close()
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	text, err := resilience.Do(ctx, c.executor, operationName, func(ctx context.Context) (string, error) {
		return c.parseOnce(ctx, doc, data)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", resilience.WrapTemporary(operationName, err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) parseOnce(ctx context.Context, doc *domain.Document, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", doc.Name)
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return "", fmt.Errorf("create parse request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("docparse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", resilience.NewHTTPStatusError("docparse", "parse", resp)
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode parse response: %w", err)
	}
	return out.Text, nil
}
