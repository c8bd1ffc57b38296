package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ollama/ollama/api"
)

// Client generates text with one model on one Ollama server.
type Client struct {
	model string
	base  *url.URL
	http  *http.Client
	api   *api.Client
}

// New returns a client bound to model on the server at ep.
func New(model string, ep Endpoint) (*Client, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	raw := strings.TrimRight(strings.TrimSpace(ep.BaseURL), "/")
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", raw)
	}

	httpClient := defaultHTTPClient(ep.HTTPClient)
	return &Client{
		model: model,
		base:  base,
		http:  httpClient,
		api:   api.NewClient(base, httpClient),
	}, nil
}

// Model returns the model identifier requests are sent for.
func (c *Client) Model() string { return c.model }

// GenerateStream opens a streaming generation for prompt. When sess is
// non-nil its context is sent with the request and replaced by the
// continuation state the server returns.
func (c *Client) GenerateStream(ctx context.Context, prompt string, sess *Session) (*Stream, error) {
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
	}
	if sess != nil && len(sess.Context) > 0 {
		req.Context = sess.Context
	}

	resp, err := openStream(ctx, c.http, joinURL(c.base.String(), "/api/generate"), req)
	if err != nil {
		return nil, &RequestError{Op: "generate", Err: err}
	}
	return newStream(resp.Body, sess), nil
}

// ListModels returns the models installed on the server, sorted by name.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, &RequestError{Op: "list models", Err: err}
	}

	models := make([]Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		models = append(models, Model{Name: name, Size: m.Size})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}
