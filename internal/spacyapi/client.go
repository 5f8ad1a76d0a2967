// Package spacyapi talks to a spaCy annotation sidecar over HTTP.
//
// The sidecar exposes two endpoints:
//
//	GET  /models    -> {"models": ["pt_core_news_sm", ...]}
//	POST /annotate  <- {"model": "...", "text": "..."}
//	                -> {"tokens": [{"text","lemma","pos","tag","dep","head","ent_type"}]}
package spacyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
)

// Client loads models from a spaCy sidecar.
type Client struct {
	BaseURL string

	HTTPClient *http.Client
}

type modelsResponse struct {
	Models []string `json:"models"`
}

type annotateRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type annotateResponse struct {
	Tokens []annotate.Annotation `json:"tokens"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Load checks that the sidecar serves model and returns an engine bound to
// it. Any failure is reported as annotate.ErrEngineUnavailable.
func (c *Client) Load(ctx context.Context, model string) (annotate.Engine, error) {
	if c.BaseURL == "" || model == "" {
		return nil, fmt.Errorf("%w: spacy base URL and model required", annotate.ErrEngineUnavailable)
	}
	models, err := c.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", annotate.ErrEngineUnavailable, err)
	}
	if !slices.Contains(models, model) {
		return nil, fmt.Errorf("%w: model %q not found, run: python -m spacy download %s",
			annotate.ErrEngineUnavailable, model, model)
	}
	return &engine{client: c, model: model}, nil
}

// Models lists the models the sidecar has loaded.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/models"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spacy: list models: HTTP %d", resp.StatusCode)
	}
	var payload modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("spacy: decode models: %w", err)
	}
	return payload.Models, nil
}

type engine struct {
	client *Client
	model  string
}

// Annotate sends text to the sidecar.
func (e *engine) Annotate(ctx context.Context, text string) ([]annotate.Annotation, error) {
	body, err := json.Marshal(annotateRequest{Model: e.model, Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.client.url("/annotate"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("spacy: decode annotation (HTTP %d): %w", resp.StatusCode, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("spacy error: %s", payload.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spacy: annotate: HTTP %d", resp.StatusCode)
	}
	return payload.Tokens, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// defaultHTTPClient serves every Client without its own HTTPClient.
var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}
