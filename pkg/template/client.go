// client.go - Client for the remote template persistence service.
package template

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrTemplateNotFound is returned when the service has no template with the requested id.
var ErrTemplateNotFound = errors.New("template not found")

// Service endpoints, relative to the client's base URL.
const (
	listPath   = "/api/template-materials/image-templates"
	savePath   = "/api/template-materials/save-image-template"
	deletePath = "/api/template-materials/image-template/"
)

// Client talks to the template persistence service over plain request/response calls.
// It does not retry.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. A nil httpClient
// gets a client with a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// envelope is the alternate response shape {success, data, message}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

// List returns all image templates. The service answers either with a bare
// array or with a {success, data} envelope; both are accepted.
func (c *Client) List(ctx context.Context) ([]ImageTemplate, error) {
	body, err := c.do(ctx, http.MethodGet, listPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeTemplateList(body)
}

// Get returns the template with the given id.
func (c *Client) Get(ctx context.Context, id int) (*ImageTemplate, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("template %d: %w", id, ErrTemplateNotFound)
}

// Save stores a template record.
func (c *Client) Save(ctx context.Context, t ImageTemplate) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, savePath, payload)
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

// Delete removes a template by id.
func (c *Client) Delete(ctx context.Context, id int) error {
	body, err := c.do(ctx, http.MethodDelete, deletePath+strconv.Itoa(id), nil)
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrTemplateNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func decodeTemplateList(body []byte) ([]ImageTemplate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []ImageTemplate
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
		return list, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("template service: %s", env.reason())
	}
	var list []ImageTemplate
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &list); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
	}
	return list, nil
}

func checkEnvelope(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("template service: %s", env.reason())
	}
	return nil
}

func (e envelope) reason() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return "request failed"
	}
}
