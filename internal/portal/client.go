// Package portal is the client side of the officer profile screens: it
// loads the profile bundle, merges sections locally and saves edits.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"karmasri/internal/snapshot"
	"karmasri/pkg/models"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNotSaved    = errors.New("record has not been saved")
	ErrNoChanges   = errors.New("nothing to save")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("portal: %d %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for f, m := range e.Fields {
		parts = append(parts, f+" "+m)
	}
	return fmt.Sprintf("portal: %d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
	// OfficerID lets GAD staff act on another officer.
	OfficerID string
	// Cache holds bundle snapshots. Optional.
	Cache *snapshot.Cache
	Log   *zap.Logger
}

func NewClient(baseURL string, cache *snapshot.Cache, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Cache:   cache,
		Log:     log,
	}
}

type LoginResult struct {
	Officer   models.Officer `json:"officer"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Login exchanges a PEN or email and password for a token.
func (c *Client) Login(ctx context.Context, login, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"login": login, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return out, err
	}
	c.Token = out.Token
	return out, nil
}

func (c *Client) Me(ctx context.Context) (models.Officer, error) {
	var out models.Officer
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.Token = ""
	return err
}

// path appends ?officer_id= when acting for another officer.
func (c *Client) path(p string) string {
	if c.OfficerID == "" {
		return p
	}
	return p + "?officer_id=" + url.QueryEscape(c.OfficerID)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("portal: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("portal: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("portal: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("portal: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			apiErr.Message, apiErr.Fields = e.Error, e.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if b, ok := out.(*[]byte); ok {
		*b = raw
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("portal: decode response: %w", err)
	}
	return nil
}

// Upload sends one file to the document store and returns its id.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(fw, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.path("/doc-uploader/upload"), pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("portal: build upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		DocumentID string `json:"document_id"`
	}
	if err := c.send(req, &out); err != nil {
		_ = pr.Close()
		return "", err
	}
	if out.DocumentID == "" {
		return "", errors.New("portal: upload response carried no document id")
	}
	return out.DocumentID, nil
}

// Download fetches a stored document.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/doc-uploader/get-document/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("portal: build download: %w", err)
	}
	var b []byte
	if err := c.send(req, &b); err != nil {
		return nil, err
	}
	return b, nil
}
