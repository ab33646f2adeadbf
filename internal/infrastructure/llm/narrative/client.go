// Package narrative is the HTTP client for the remote narrative generation service.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
	"github.com/kirillkom/sponsor-compliance/internal/infrastructure/resilience"
)

const (
	serviceName   = "narrative"
	generatePath  = "/v1/narratives"
	operationName = "narrative.generate"
)

// ErrRejected is returned when the service answers success:false.
var ErrRejected = errors.New("narrative service rejected request")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, timeout time.Duration, cfg resilience.Config, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		executor:   resilience.NewExecutor(cfg, logger),
	}
}

type generateResponse struct {
	Success   bool   `json:"success"`
	Narrative string `json:"narrative"`
	Error     string `json:"error"`
}

// Generate posts the request and returns the narrative text. Transient failures
// are retried by the executor; success:false and malformed bodies are not.
func (c *Client) Generate(ctx context.Context, req domain.NarrativeRequest) (string, error) {
	text, err := resilience.Do(ctx, c.executor, operationName, func(ctx context.Context) (string, error) {
		return c.generateOnce(ctx, req)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", resilience.WrapTemporary(operationName, err)
	}
	return text, nil
}

func (c *Client) generateOnce(ctx context.Context, payload domain.NarrativeRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal narrative request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create narrative request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrative request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", resilience.NewHTTPStatusError(serviceName, "generate", resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode narrative response: %w", err)
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "no error message"
		}
		return "", fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	if strings.TrimSpace(out.Narrative) == "" {
		return "", fmt.Errorf("%w: empty narrative", ErrRejected)
	}
	return out.Narrative, nil
}
