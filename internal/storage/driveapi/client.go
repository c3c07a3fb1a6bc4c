// Package driveapi implements storage.Store against the remote
// hierarchical object store's HTTP API. The client never sleeps or
// retries; it classifies every failure into the storage error taxonomy
// and leaves the retry decision to the transport retry wrapper above it.
package driveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingodocs/docstore/internal/storage"
)

// Config holds the connection settings for the remote store API.
type Config struct {
	BaseURL             string
	TokenEndpoint       string
	ServiceAccountEmail string
	ServiceSecret       string

	// HTTPClient overrides the default client (20s timeout) in tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenSource
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     newTokenSource(cfg.TokenEndpoint, cfg.ServiceAccountEmail, cfg.ServiceSecret, httpClient),
	}
}

// Wire models of the store API.

type folderDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type fileDTO struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Size       int64             `json:"size,omitempty"`
	Parents    []string          `json:"parents,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	WebURL     string            `json:"web_url,omitempty"`
	Trashed    bool              `json:"trashed,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type errorDTO struct {
	Error struct {
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *folderDTO) toNode() *storage.FolderNode {
	return &storage.FolderNode{ID: f.ID, Name: f.Name, ParentID: f.ParentID}
}

func (f *fileDTO) toRecord() *storage.FileRecord {
	return &storage.FileRecord{
		ID:         f.ID,
		Name:       f.Name,
		Size:       f.Size,
		Parents:    f.Parents,
		CreatedAt:  f.CreatedAt,
		WebURL:     f.WebURL,
		Trashed:    f.Trashed,
		Properties: f.Properties,
	}
}

func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*storage.FolderNode, error) {
	body := map[string]string{"name": name}
	if parentID != "" {
		body["parent_id"] = parentID
	}
	var out folderDTO
	if err := c.doJSON(ctx, "folders.create", http.MethodPost, "/v2/folders", nil, body, &out); err != nil {
		return nil, err
	}
	return out.toNode(), nil
}

func (c *Client) FindFolders(ctx context.Context, name, parentID string) ([]*storage.FolderNode, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("trashed", "false")
	if parentID != "" {
		q.Set("parent_id", parentID)
	} else {
		q.Set("parent_id", "root")
	}
	var out struct {
		Folders []folderDTO `json:"folders"`
	}
	if err := c.doJSON(ctx, "folders.find", http.MethodGet, "/v2/folders", q, nil, &out); err != nil {
		return nil, err
	}
	nodes := make([]*storage.FolderNode, 0, len(out.Folders))
	for i := range out.Folders {
		nodes = append(nodes, out.Folders[i].toNode())
	}
	return nodes, nil
}

func (c *Client) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	const op = "files.create"

	meta := map[string]any{
		"name":       in.Name,
		"properties": in.Properties,
	}
	if in.ParentID != "" {
		meta["parent_id"] = in.ParentID
	}
	if in.Description != "" {
		meta["description"] = in.Description
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", `form-data; name="metadata"`)
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename=%q`, in.Name))
	contentHeader.Set("Content-Type", "application/octet-stream")
	contentPart, err := mw.CreatePart(contentHeader)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}
	if _, err := contentPart.Write(in.Content); err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}
	if err := mw.Close(); err != nil {
		return nil, storage.NewError(storage.KindStorage, op, 0, err)
	}

	var out fileDTO
	if err := c.do(ctx, op, http.MethodPost, "/v2/files", nil, buf.Bytes(), mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	rec := out.toRecord()
	if rec.Size == 0 {
		// Some store versions omit the size; fall back to what we sent.
		rec.Size = int64(len(in.Content))
	}
	return rec, nil
}

func (c *Client) GetFile(ctx context.Context, id string) (*storage.FileRecord, error) {
	var out fileDTO
	if err := c.doJSON(ctx, "files.get", http.MethodGet, "/v2/files/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toRecord(), nil
}

func (c *Client) UpdateFile(ctx context.Context, id string, upd *storage.FileUpdate) (*storage.FileRecord, error) {
	body := map[string]any{}
	if len(upd.AddParents) > 0 {
		body["add_parents"] = upd.AddParents
	}
	if len(upd.RemoveParents) > 0 {
		body["remove_parents"] = upd.RemoveParents
	}
	if upd.Properties != nil {
		body["properties"] = upd.Properties
	}
	if upd.Name != "" {
		body["name"] = upd.Name
	}
	if upd.Description != "" {
		body["description"] = upd.Description
	}

	var out fileDTO
	if err := c.doJSON(ctx, "files.update", http.MethodPatch, "/v2/files/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return out.toRecord(), nil
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.doJSON(ctx, "files.delete", http.MethodDelete, "/v2/files/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) FindFilesByProperties(ctx context.Context, props map[string]string) ([]*storage.FileRecord, error) {
	q := url.Values{}
	q.Set("trashed", "false")
	for k, v := range props {
		q.Add("property", k+":"+v)
	}
	var out struct {
		Files []fileDTO `json:"files"`
	}
	if err := c.doJSON(ctx, "files.search", http.MethodGet, "/v2/files", q, nil, &out); err != nil {
		return nil, err
	}
	recs := make([]*storage.FileRecord, 0, len(out.Files))
	for i := range out.Files {
		recs = append(recs, out.Files[i].toRecord())
	}
	return recs, nil
}

func (c *Client) ListTrashed(ctx context.Context) ([]*storage.FileRecord, error) {
	q := url.Values{}
	q.Set("trashed", "true")
	var out struct {
		Files []fileDTO `json:"files"`
	}
	if err := c.doJSON(ctx, "files.listTrashed", http.MethodGet, "/v2/files", q, nil, &out); err != nil {
		return nil, err
	}
	recs := make([]*storage.FileRecord, 0, len(out.Files))
	for i := range out.Files {
		recs = append(recs, out.Files[i].toRecord())
	}
	return recs, nil
}

// doJSON sends a JSON (or bodyless) request.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	contentType := ""
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return storage.NewError(storage.KindStorage, op, 0, err)
		}
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, query, payload, contentType, out)
}

// do executes one request: bearer auth, correlation id, status
// classification, optional JSON decoding of the response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload []byte, contentType string, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return storage.NewError(storage.KindStorage, op, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Correlation-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storage.FromTransport(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.FromTransport(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			// A cached token may have been revoked server-side.
			c.tokens.Invalidate()
		}
		reason, message := parseErrorBody(respBody)
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}
		return storage.FromStatus(op, resp.StatusCode, reason, fmt.Errorf("store answered %d: %s", resp.StatusCode, message))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return storage.NewError(storage.KindStorage, op, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func parseErrorBody(body []byte) (reason, message string) {
	var e errorDTO
	if json.Unmarshal(body, &e) == nil {
		return e.Error.Reason, e.Error.Message
	}
	return "", ""
}
