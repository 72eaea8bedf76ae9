package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/analyzer"
)

// Client implements analyzer.Client against the Azure Document
// Intelligence REST API (begin-analyze + poll).
type Client struct {
	endpoint     string
	apiKey       string
	apiVersion   string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewClient constructs a new Azure Document Intelligence client.
func NewClient(endpoint, apiKey, apiVersion string, timeout, pollInterval time.Duration) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("AZURE_DI_ENDPOINT is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("AZURE_DI_KEY is required")
	}
	if strings.TrimSpace(apiVersion) == "" {
		apiVersion = "2023-07-31"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 1500 * time.Millisecond
	}
	return &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		apiVersion:   apiVersion,
		timeout:      timeout,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type analyzeStatus struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult,omitempty"`
	Error         *azureError    `json:"error,omitempty"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error *azureError `json:"error,omitempty"`
}

// Analyze submits the document bytes to the given model and polls the
// returned operation until it settles. The whole round trip is bounded
// by the configured timeout.
func (c *Client) Analyze(ctx context.Context, data []byte, modelID string) (analyzer.Result, error) {
	if strings.TrimSpace(modelID) == "" {
		return analyzer.Result{}, fmt.Errorf("analyzer model is required")
	}
	if len(data) == 0 {
		return analyzer.Result{}, fmt.Errorf("empty document payload")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opURL, err := c.beginAnalyze(ctx, data, modelID)
	if err != nil {
		return analyzer.Result{}, err
	}

	status, err := c.pollOperation(ctx, opURL)
	if err != nil {
		return analyzer.Result{}, err
	}
	if status.AnalyzeResult == nil {
		return analyzer.Result{}, fmt.Errorf("analyzer returned no result")
	}

	return normalizeResult(modelID, status.AnalyzeResult), nil
}

func (c *Client) beginAnalyze(ctx context.Context, data []byte, modelID string) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s", c.endpoint, modelID, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("analyzer request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", decodeError(resp, "begin analyze")
	}

	opURL := strings.TrimSpace(resp.Header.Get("Operation-Location"))
	if opURL == "" {
		return "", fmt.Errorf("analyzer response missing Operation-Location")
	}
	return opURL, nil
}

func (c *Client) pollOperation(ctx context.Context, opURL string) (*analyzeStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.fetchOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case "succeeded":
			return status, nil
		case "failed":
			if status.Error != nil {
				return nil, fmt.Errorf("analyzer failed: %s (%s)", status.Error.Message, status.Error.Code)
			}
			return nil, fmt.Errorf("analyzer failed without detail")
		case "notStarted", "running":
			// keep polling
		default:
			return nil, fmt.Errorf("analyzer reported unknown status %q", status.Status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analyzer poll timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchOperation(ctx context.Context, opURL string) (*analyzeStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("analyzer poll timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, "poll operation")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var status analyzeStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("analyzer response parse: %w", err)
	}
	return &status, nil
}

func decodeError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("analyzer %s: %s (%s)", op, envelope.Error.Message, envelope.Error.Code)
	}
	return fmt.Errorf("analyzer %s: unexpected status %d", op, resp.StatusCode)
}

var _ analyzer.Client = (*Client)(nil)
