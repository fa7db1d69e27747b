package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/tenderdraft/internal/transport/stream"
)

const apiPrefix = "/api/v1"

// Client talks to one tenderdraft server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tenderdraft: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c, nil
}

// Upload sends a file for ingestion.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, docType DocType) (UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("docType", string(docType)); err != nil {
		return UploadResult{}, fmt.Errorf("write docType: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", contentType(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart: %w", err)
	}

	var out UploadResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/documents", mw.FormDataContentType(), &body, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// List returns stored documents; an empty docType lists every document.
func (c *Client) List(ctx context.Context, docType DocType) ([]Document, error) {
	path := apiPrefix + "/documents"
	if docType != "" {
		path += "?docType=" + url.QueryEscape(string(docType))
	}
	var out struct {
		Items []Document `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Delete removes a document with its chunks and cached analysis.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, apiPrefix+"/documents/"+url.PathEscape(id), "", nil, nil)
}

// Search returns the passages most similar to query.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	payload, err := json.Marshal(struct {
		Query     string        `json:"query"`
		Operation string        `json:"operation"`
		Options   SearchOptions `json:"options"`
	}{query, "search", opts})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/retrieval", "application/json", bytes.NewReader(payload), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Generate runs a generation and returns the assembled markdown document.
// Progress frames are passed to onProgress (may be nil) as they arrive and
// are not part of the returned body. A failure after the stream started is
// reported inside the body, as the server renders it.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, onProgress func(msg string)) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, apiPrefix+"/generate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var body strings.Builder
	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			body.WriteString(splitProgress(line, onProgress))
		}
		if errors.Is(err, io.EOF) {
			return body.String(), nil
		}
		if err != nil {
			return body.String(), fmt.Errorf("read stream: %w", err)
		}
	}
}

// splitProgress reports a progress frame ending line and returns the text before it.
func splitProgress(line string, onProgress func(string)) string {
	i := strings.Index(line, stream.ProgressPrefix)
	if i < 0 {
		return line
	}
	msg, ok := stream.ParseProgress(line[i:])
	if !ok {
		return line
	}
	if onProgress != nil {
		onProgress(msg)
	}
	return line[:i]
}

func (c *Client) do(ctx context.Context, method, path, ctype string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, ctype, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path, ctype string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
	return nil, apiErr
}

func contentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
