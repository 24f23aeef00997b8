package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 10 << 20

// FilePart is one file in a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// PostJSON POSTs v encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, ref string, v any) (*http.Response, error) {
	return c.SendJSON(ctx, http.MethodPost, ref, v)
}

// PatchJSON PATCHes v encoded as JSON.
func (c *Client) PatchJSON(ctx context.Context, ref string, v any) (*http.Response, error) {
	return c.SendJSON(ctx, http.MethodPatch, ref, v)
}

// Delete sends a DELETE for ref.
func (c *Client) Delete(ctx context.Context, ref string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodDelete, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	return c.Do(ctx, req)
}

// SendJSON sends v encoded as JSON with the given method.
func (c *Client) SendJSON(ctx context.Context, method, ref string, v any) (*http.Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := c.NewRequest(ctx, method, ref, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderContentType, ContentTypeJSON)
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	return c.Do(ctx, req)
}

// PostMultipart POSTs a multipart/form-data body holding fields and files.
// The body is buffered so the request can be rebuilt by redirects.
func (c *Client) PostMultipart(ctx context.Context, ref string, fields map[string]string, files []FilePart) (*http.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", f.Filename, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, ref, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderContentType, w.FormDataContentType())
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	return c.Do(ctx, req)
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// IsSuccess reports whether the response status is 2xx.
func IsSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
