// Package replicate is a client for the hosted image-generation API
// (Replicate-style predictions). A generation is created with a fixed model
// version and fixed parameters, then polled until it reaches a terminal
// status. Generations routinely take tens of seconds; cancellation is driven
// entirely by the caller's context.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoOutput indicates the prediction finished without producing any
// image URL.
var ErrNoOutput = errors.New("prediction returned no output")

// Prediction statuses reported by the API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Config holds client configuration. ModelVersion and the generation
// parameters are deployment constants; prompts are the only caller input.
type Config struct {
	BaseURL        string
	Token          string
	ModelVersion   string
	InferenceSteps int
	GuidanceScale  float64
	NegativePrompt string
	PollInterval   time.Duration
	HTTPClient     *http.Client
}

// Client calls the predictions API.
type Client struct {
	baseURL        string
	token          string
	modelVersion   string
	inferenceSteps int
	guidanceScale  float64
	negativePrompt string
	pollInterval   time.Duration
	httpClient     *http.Client
}

// New creates a new predictions client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("Token is required")
	}
	if cfg.ModelVersion == "" {
		return nil, fmt.Errorf("ModelVersion is required")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		modelVersion:   cfg.ModelVersion,
		inferenceSteps: cfg.InferenceSteps,
		guidanceScale:  cfg.GuidanceScale,
		negativePrompt: cfg.NegativePrompt,
		pollInterval:   pollInterval,
		httpClient:     httpClient,
	}, nil
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate runs one prediction for the given prompt and returns the first
// output URL. It blocks until the prediction reaches a terminal status or
// ctx is done; a prediction abandoned mid-poll keeps running upstream.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	pred, err := c.createPrediction(ctx, prompt)
	if err != nil {
		return "", err
	}

	for !isTerminal(pred.Status) {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("prediction %s: %w", pred.ID, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		pred, err = c.getPrediction(ctx, pred.ID)
		if err != nil {
			return "", err
		}
	}

	switch pred.Status {
	case StatusSucceeded:
		urls, err := coerceOutputURLs(pred.Output)
		if err != nil {
			return "", fmt.Errorf("prediction %s: %w", pred.ID, err)
		}
		if len(urls) == 0 {
			return "", fmt.Errorf("prediction %s: %w", pred.ID, ErrNoOutput)
		}
		return urls[0], nil
	case StatusCanceled:
		return "", fmt.Errorf("prediction %s was canceled", pred.ID)
	default:
		if pred.Error != "" {
			return "", fmt.Errorf("prediction %s failed: %s", pred.ID, pred.Error)
		}
		return "", fmt.Errorf("prediction %s failed", pred.ID)
	}
}

func (c *Client) createPrediction(ctx context.Context, prompt string) (*prediction, error) {
	payload := map[string]any{
		"version": c.modelVersion,
		"input": map[string]any{
			"prompt":              prompt,
			"num_inference_steps": c.inferenceSteps,
			"guidance_scale":      c.guidanceScale,
			"negative_prompt":     c.negativePrompt,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("replicate error: %s", errResp.Detail)
		}
		return nil, fmt.Errorf("replicate error: status %d", resp.StatusCode)
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	return &pred, nil
}

func isTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// coerceOutputURLs normalizes the prediction output. Depending on the model,
// output is a list of URL strings, a list of file objects carrying a "url"
// field, or a bare URL string.
func coerceOutputURLs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return nonEmpty(urls), nil
	}

	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			out = append(out, o.URL)
		}
		return nonEmpty(out), nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return nonEmpty([]string{single}), nil
	}

	return nil, fmt.Errorf("unrecognized output shape: %s", raw)
}

func nonEmpty(urls []string) []string {
	out := urls[:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
