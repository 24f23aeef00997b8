// Package api calls the geodetic backend's REST endpoints through the
// shared, bootstrapped HTTP client. Endpoint URLs come from the settings
// bundle; an empty URL disables the feature behind it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// API errors.
var (
	ErrFeatureDisabled = errors.New("feature disabled: endpoint not configured")
	ErrNoIDs           = errors.New("at least one point id is required")
	ErrNoFiles         = errors.New("at least one file is required")
	ErrInvalidRadius   = errors.New("radius must be positive")
	ErrInvalidID       = errors.New("id must not be empty")
	ErrNoFields        = errors.New("at least one field is required")
)

// Multipart field names expected by the upload views.
const (
	FieldRinexFiles = "rinex_files"
	FieldKMLFiles   = "kml_files"
	FieldRadius     = "radius"
)

// DefaultRadius is the KML match radius in metres used by the backend when
// none is sent.
const DefaultRadius = 3

// apiRoot is used to derive paths not present in the bundle.
const apiRoot = "/api/"

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Forbidden reports a 403, which for mutating calls usually means the CSRF
// token was missing or rejected.
func (e *StatusError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// StationName is one entry of the station directory.
type StationName struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DeleteResult is the body of a successful bulk delete.
type DeleteResult struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}

// Message is one status line of an upload response.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UploadResult is the body returned by both upload views. RINEX uploads
// report CreatedCount, KML uploads report UpdatedCount.
type UploadResult struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedCount int       `json:"total_created_count,omitempty"`
	UpdatedCount int       `json:"updated_count,omitempty"`
}

// File is one file to upload.
type File struct {
	Name    string
	Content io.Reader
}

// Client is the backend API.
type Client struct {
	http     *httpclient.Client
	settings types.Settings
	logger   *slog.Logger
}

// New returns a Client using the endpoints in settings.
func New(c *httpclient.Client, settings types.Settings, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: c, settings: settings, logger: logger}
}

// ListPoints returns the points GeoJSON FeatureCollection as served.
func (c *Client) ListPoints(ctx context.Context) (json.RawMessage, error) {
	if c.settings.APIPointsURL == "" {
		return nil, fmt.Errorf("list points: %w", ErrFeatureDisabled)
	}
	var out json.RawMessage
	if err := c.getJSON(ctx, c.settings.APIPointsURL, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStationNames returns the station directory. Both a bare list and a
// paginated {"results": [...]} body are accepted.
func (c *Client) ListStationNames(ctx context.Context) ([]StationName, error) {
	if c.settings.APIStationNamesURL == "" {
		return nil, fmt.Errorf("list station names: %w", ErrFeatureDisabled)
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.settings.APIStationNamesURL, &raw); err != nil {
		return nil, err
	}

	var names []StationName
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var page struct {
		Results []StationName `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode station names: %w", err)
	}
	return page.Results, nil
}

// GetPoint returns one point as served.
func (c *Client) GetPoint(ctx context.Context, id string) (json.RawMessage, error) {
	ref, err := c.pointURL(id)
	if err != nil {
		return nil, fmt.Errorf("get point: %w", err)
	}
	var out json.RawMessage
	if err := c.getJSON(ctx, ref, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePoint applies a partial update to one point and returns the point
// as stored. A 400 carries the backend's reason in StatusError.Detail.
func (c *Client) UpdatePoint(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error) {
	ref, err := c.pointURL(id)
	if err != nil {
		return nil, fmt.Errorf("update point: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	resp, err := c.http.PatchJSON(ctx, ref, fields)
	if err != nil {
		return nil, fmt.Errorf("update point %s: %w", id, err)
	}
	var out json.RawMessage
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "point updated", "id", strings.TrimSpace(id), "fields", len(fields))
	return out, nil
}

// DeletePoint removes one point.
func (c *Client) DeletePoint(ctx context.Context, id string) error {
	ref, err := c.pointURL(id)
	if err != nil {
		return fmt.Errorf("delete point: %w", err)
	}

	resp, err := c.http.Delete(ctx, ref)
	if err != nil {
		return fmt.Errorf("delete point %s: %w", id, err)
	}
	defer resp.Body.Close()
	if !httpclient.IsSuccess(resp) {
		err := statusError(resp)
		c.logger.Warn("backend rejected request", "error", err)
		return err
	}
	c.logger.InfoContext(ctx, "point deleted", "id", strings.TrimSpace(id))
	return nil
}

// pointURL returns the detail URL of one point under the points endpoint.
func (c *Client) pointURL(id string) (string, error) {
	if c.settings.APIPointsURL == "" {
		return "", ErrFeatureDisabled
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return joinPath(c.settings.APIPointsURL, url.PathEscape(id)+"/"), nil
}

// DeletePoints removes the points with the given ids.
func (c *Client) DeletePoints(ctx context.Context, ids []string) (DeleteResult, error) {
	if c.settings.APIPointsURL == "" {
		return DeleteResult{}, fmt.Errorf("delete points: %w", ErrFeatureDisabled)
	}
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return DeleteResult{}, ErrNoIDs
	}

	ref := joinPath(c.settings.APIPointsURL, "delete-multiple/")
	resp, err := c.http.PostJSON(ctx, ref, map[string][]string{"ids": clean})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete points: %w", err)
	}
	var out DeleteResult
	if err := c.decode(resp, &out); err != nil {
		return DeleteResult{}, err
	}
	c.logger.InfoContext(ctx, "points deleted", "requested", len(clean), "deleted", out.DeletedCount)
	return out, nil
}

// UploadRinex sends RINEX observation files.
func (c *Client) UploadRinex(ctx context.Context, files []File) (UploadResult, error) {
	if c.settings.APIUploadURL == "" {
		return UploadResult{}, fmt.Errorf("upload rinex: %w", ErrFeatureDisabled)
	}
	return c.upload(ctx, c.settings.APIUploadURL, FieldRinexFiles, files, nil)
}

// UploadKML sends KML files; points within radius metres of a placemark are
// updated. A radius of zero sends DefaultRadius.
func (c *Client) UploadKML(ctx context.Context, files []File, radius int) (UploadResult, error) {
	if c.settings.APIKmlUploadURL == "" {
		return UploadResult{}, fmt.Errorf("upload kml: %w", ErrFeatureDisabled)
	}
	if radius < 0 {
		return UploadResult{}, ErrInvalidRadius
	}
	if radius == 0 {
		radius = DefaultRadius
	}
	fields := map[string]string{FieldRadius: strconv.Itoa(radius)}
	return c.upload(ctx, c.settings.APIKmlUploadURL, FieldKMLFiles, files, fields)
}

func (c *Client) upload(ctx context.Context, ref, field string, files []File, fields map[string]string) (UploadResult, error) {
	if len(files) == 0 {
		return UploadResult{}, ErrNoFiles
	}
	parts := make([]httpclient.FilePart, 0, len(files))
	for _, f := range files {
		parts = append(parts, httpclient.FilePart{Field: field, Filename: f.Name, Content: f.Content})
	}

	resp, err := c.http.PostMultipart(ctx, ref, fields, parts)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", field, err)
	}
	var out UploadResult
	if err := c.decode(resp, &out); err != nil {
		return UploadResult{}, err
	}
	c.logger.InfoContext(ctx, "upload finished", "field", field, "files", len(files), "success", out.Success)
	return out, nil
}

// DownloadObservation streams the source file of an observation to w and
// returns the number of bytes written. The path sits next to the points
// endpoint under the same /api/ root.
func (c *Client) DownloadObservation(ctx context.Context, id string, w io.Writer) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, ErrInvalidID
	}
	ref := joinPath(c.apiBase(), "observations/"+url.PathEscape(id)+"/download/")

	resp, err := c.http.Get(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("download observation %s: %w", id, err)
	}
	defer resp.Body.Close()
	if !httpclient.IsSuccess(resp) {
		return 0, statusError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download observation %s: %w", id, err)
	}
	return n, nil
}

// apiBase returns the /api/ root of the points URL, or /api/ when the
// points URL does not contain one.
func (c *Client) apiBase() string {
	p := c.settings.APIPointsURL
	if i := strings.Index(p, apiRoot); i >= 0 {
		return p[:i+len(apiRoot)]
	}
	return apiRoot
}

func (c *Client) getJSON(ctx context.Context, ref string, v any) error {
	resp, err := c.http.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("get %s: %w", ref, err)
	}
	return c.decode(resp, v)
}

// decode closes resp and decodes a 2xx body into v.
func (c *Client) decode(resp *http.Response, v any) error {
	if !httpclient.IsSuccess(resp) {
		defer resp.Body.Close()
		err := statusError(resp)
		c.logger.Warn("backend rejected request", "error", err)
		return err
	}
	return httpclient.DecodeJSON(resp, v)
}

// statusError builds a StatusError, reading detail from the DRF "detail",
// the upload views' "message" or the first of their "messages".
func statusError(resp *http.Response) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}

	var body struct {
		Detail   string    `json:"detail"`
		Message  string    `json:"message"`
		Messages []Message `json:"messages"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Detail != "":
			e.Detail = body.Detail
		case body.Message != "":
			e.Detail = body.Message
		case len(body.Messages) > 0:
			e.Detail = body.Messages[0].Text
		}
	}
	return e
}

// joinPath appends rel to base, keeping exactly one slash between them.
func joinPath(base, rel string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
