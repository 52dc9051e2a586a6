// Package client talks to a running wake word data server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wakeword-data/wakeword-data/internal/schema"
)

const (
	uploadPath   = "/assist/wake_word/training_data/upload"
	listPath     = "/assist/wake_word/training_data/list"
	downloadPath = "/assist/wake_word/training_data/download"
	healthPath   = "/healthz"
	samplesPath  = "/samples"
)

// Config holds client connection settings. AdminURL is only needed for Health,
// Stat and Delete.
type Config struct {
	URL            string
	AdminURL       string
	Timeout        time.Duration
	MaxConnections int
	TraceHeader    string
}

// Client handles communication with the server.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	admin       string
	traceHeader string
}

// UploadParams are the labels sent with a sample.
type UploadParams struct {
	WakeWord string
	Age      string
	Gender   string
	Language string
	Accent   string
	TraceID  string
}

// ListParams selects a page of samples.
type ListParams struct {
	Prefix    string
	Cursor    string
	Delimiter string
	Limit     int
}

// Download is a sample being streamed from the server. Callers must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
}

// New creates a client with connection pooling.
func New(cfg Config) *Client {
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 100
	}
	transport := &http.Transport{
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	traceHeader := cfg.TraceHeader
	if traceHeader == "" {
		traceHeader = "Cf-Ray"
	}

	return &Client{
		httpClient:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		endpoint:    strings.TrimRight(cfg.URL, "/"),
		admin:       strings.TrimRight(cfg.AdminURL, "/"),
		traceHeader: traceHeader,
	}
}

// Health checks the admin health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.admin == "" {
		return errors.New("admin url is not configured")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.admin+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Upload stores one sample. size must be the exact body length.
func (c *Client) Upload(ctx context.Context, body io.Reader, size int64, contentType string, params UploadParams) (*schema.UploadResponse, error) {
	q := url.Values{}
	q.Set("wake_word", params.WakeWord)
	setIfNotEmpty(q, "age", params.Age)
	setIfNotEmpty(q, "gender", params.Gender)
	setIfNotEmpty(q, "language", params.Language)
	setIfNotEmpty(q, "accent", params.Accent)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+uploadPath+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.ContentLength = size
	httpReq.Header.Set("Content-Type", contentType)
	if params.TraceID != "" {
		httpReq.Header.Set(c.traceHeader, params.TraceID)
	}

	var result schema.UploadResponse
	if err := c.doJSON(ctx, httpReq, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List fetches one page of samples.
func (c *Client) List(ctx context.Context, params ListParams) (*schema.ListResponse, error) {
	q := url.Values{}
	setIfNotEmpty(q, "prefix", params.Prefix)
	setIfNotEmpty(q, "cursor", params.Cursor)
	setIfNotEmpty(q, "delimiter", params.Delimiter)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	target := c.endpoint + listPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result schema.ListResponse
	if err := c.doJSON(ctx, httpReq, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAll follows cursors until the listing is exhausted, calling fn per page.
func (c *Client) ListAll(ctx context.Context, params ListParams, fn func(*schema.ListResponse) error) error {
	for {
		page, err := c.List(ctx, params)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if !page.Truncated || page.Cursor == "" {
			return nil
		}
		params.Cursor = page.Cursor
	}
}

// Download opens a stored sample.
func (c *Client) Download(ctx context.Context, key string) (*Download, error) {
	q := url.Values{}
	q.Set("key", key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+downloadPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeServerError(resp)
	}

	d := &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Filename:    key,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	return d, nil
}

// Stat fetches the metadata of a stored sample from the admin API.
func (c *Client) Stat(ctx context.Context, key string) (*schema.ObjectInfo, error) {
	httpReq, err := c.adminRequest(ctx, http.MethodGet, key)
	if err != nil {
		return nil, err
	}

	var result schema.ObjectInfo
	if err := c.doJSON(ctx, httpReq, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a stored sample through the admin API.
func (c *Client) Delete(ctx context.Context, key string) error {
	httpReq, err := c.adminRequest(ctx, http.MethodDelete, key)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return decodeServerError(resp)
	}
	return nil
}

func (c *Client) adminRequest(ctx context.Context, method, key string) (*http.Request, error) {
	if c.admin == "" {
		return nil, errors.New("admin url is not configured")
	}
	q := url.Values{}
	q.Set("key", key)
	httpReq, err := http.NewRequestWithContext(ctx, method, c.admin+samplesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return httpReq, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrServerTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, want int, out interface{}) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeServerError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeServerError reads an error body, which is either an error object or
// a bare JSON string.
func decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	se := &ServerError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var payload schema.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		se.Message = payload.Message
		se.Received = payload.Received
		se.Allowed = payload.Allowed
		if payload.Error != "" {
			se.Message += ": " + payload.Error
		}
		return se
	}

	var message string
	if err := json.Unmarshal(body, &message); err == nil {
		se.Message = message
	}
	return se
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
