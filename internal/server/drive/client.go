package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/logging"
)

const (
	FolderMimeType = "application/vnd.google-apps.folder"
	JSONMimeType   = "application/json"

	FileListLimit   = 30
	FolderListLimit = 50
)

// File is the metadata subset returned by listings.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         string `json:"size,omitempty"`
}

type fileList struct {
	Files []File `json:"files"`
}

// Client is a minimal Drive v3 client. It does not retry.
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
	logger     logging.Logger
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", JSONMimeType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: drive: %s %s: %w", common.ErrUpstream, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: drive: reading body: %w", common.ErrUpstream, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newDriveError(resp.StatusCode, data)
	}

	c.logger.Debug(ctx, "drive request succeeded",
		"method", method, "path", req.URL.Path, "status", resp.StatusCode)

	return data, nil
}

// GetFile downloads a file's content. The content must be JSON.
func (c *Client) GetFile(ctx context.Context, fileID string) (json.RawMessage, error) {
	u := c.apiBase + "/files/" + url.PathEscape(fileID) + "?alt=media"
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: file %s is not JSON", ErrUnexpected, fileID)
	}
	return json.RawMessage(data), nil
}

// UpdateFile replaces a file's content.
func (c *Client) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	u := c.uploadBase + "/files/" + url.PathEscape(fileID) + "?uploadType=media"
	_, err := c.do(ctx, http.MethodPatch, u, content)
	return err
}

type createRequest struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

func (c *Client) create(ctx context.Context, meta createRequest) (*File, error) {
	body, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPost, c.apiBase+"/files?fields=id,name", body)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil || f.ID == "" {
		return nil, fmt.Errorf("%w: create returned no file id", ErrUnexpected)
	}
	return &f, nil
}

// CreateFile creates a JSON file, optionally inside parentID, and uploads
// its initial content.
func (c *Client) CreateFile(ctx context.Context, name, parentID string, content []byte) (*File, error) {
	meta := createRequest{Name: name, MimeType: JSONMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	f, err := c.create(ctx, meta)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateFile(ctx, f.ID, content); err != nil {
		return nil, err
	}
	return f, nil
}

// FindOrCreateFolder returns the id of the first folder called name,
// creating it if none exists.
func (c *Client) FindOrCreateFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	found, err := c.list(ctx, url.Values{
		"q":      {q},
		"fields": {"files(id, name)"},
		"spaces": {"drive"},
	})
	if err != nil {
		return "", err
	}
	if len(found) > 0 {
		return found[0].ID, nil
	}

	f, err := c.create(ctx, createRequest{Name: name, MimeType: FolderMimeType})
	if err != nil {
		return "", err
	}
	return f.ID, nil
}

// ListFiles returns the most recently modified JSON files.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	return c.list(ctx, url.Values{
		"q":        {"mimeType='" + JSONMimeType + "' and trashed=false"},
		"fields":   {"files(id, name, modifiedTime, size)"},
		"orderBy":  {"modifiedTime desc"},
		"pageSize": {fmt.Sprint(FileListLimit)},
	})
}

// ListFolders returns the most recently modified folders.
func (c *Client) ListFolders(ctx context.Context) ([]File, error) {
	return c.list(ctx, url.Values{
		"q":        {"mimeType='" + FolderMimeType + "' and trashed=false"},
		"fields":   {"files(id, name, modifiedTime)"},
		"orderBy":  {"modifiedTime desc"},
		"pageSize": {fmt.Sprint(FolderListLimit)},
	})
}

func (c *Client) list(ctx context.Context, params url.Values) ([]File, error) {
	data, err := c.do(ctx, http.MethodGet, c.apiBase+"/files?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var l fileList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: decoding file list: %w", ErrUnexpected, err)
	}
	if l.Files == nil {
		l.Files = []File{}
	}
	return l.Files, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
