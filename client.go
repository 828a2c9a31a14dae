// Package coa is a client for the COA service HTTP API.
package coa

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
	"time"
)

// DefaultAddress is where a locally started service listens.
const DefaultAddress = "http://localhost:4020"

// ErrNotFound is returned when the service answers 404.
var ErrNotFound = errors.New("coa: not found")

// COA mirrors the certificate returned by the API.
type COA struct {
	ID           string    `json:"id"`
	CoaID        string    `json:"coaId"`
	ClientName   string    `json:"clientName"`
	Compound     string    `json:"compound"`
	AnalysisType string    `json:"analysisType"`
	TestDate     string    `json:"testDate"`
	Status       string    `json:"status"`
	Purity       *float64  `json:"purity,omitempty"`
	Result       *string   `json:"result,omitempty"`
	Notes        string    `json:"notes"`
	FileName     string    `json:"fileName,omitempty"`
	FileSize     int64     `json:"fileSize,omitempty"`
	FileURL      string    `json:"fileUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Input carries the editable fields of a certificate.
type Input struct {
	CoaID        string   `json:"coaId"`
	ClientName   string   `json:"clientName"`
	Compound     string   `json:"compound"`
	AnalysisType string   `json:"analysisType,omitempty"`
	TestDate     string   `json:"testDate,omitempty"`
	Status       string   `json:"status,omitempty"`
	Purity       *float64 `json:"purity,omitempty"`
	Result       *string  `json:"result,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// APIError is a non 2xx answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coa: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(address, token string) *Client {
	if address == "" {
		address = DefaultAddress
	}
	return &Client{base: address, token: token, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) ListCOAs(ctx context.Context) ([]COA, error) {
	var out []COA
	err := c.do(ctx, http.MethodGet, "/api/coas", nil, "", &out)
	return out, err
}

func (c *Client) SearchCOAs(ctx context.Context, query string) ([]COA, error) {
	var out []COA
	err := c.do(ctx, http.MethodGet, "/api/coas?q="+url.QueryEscape(query), nil, "", &out)
	return out, err
}

func (c *Client) GetCOA(ctx context.Context, code string) (*COA, error) {
	var out COA
	if err := c.do(ctx, http.MethodGet, "/api/coas/"+url.PathEscape(code), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCOA(ctx context.Context, input Input) (*COA, error) {
	var out COA
	if err := c.doJSON(ctx, http.MethodPost, "/api/coas", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCOA(ctx context.Context, code string, input Input) (*COA, error) {
	var out COA
	if err := c.doJSON(ctx, http.MethodPut, "/api/coas/"+url.PathEscape(code), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCOA(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/api/coas/"+url.PathEscape(code), nil, "", nil)
}

func (c *Client) NextCOAID(ctx context.Context) (string, error) {
	var out struct {
		CoaID string `json:"coaId"`
	}
	err := c.do(ctx, http.MethodGet, "/api/coas/next-id", nil, "", &out)
	return out.CoaID, err
}

// UploadFile attaches the PDF read from r to the certificate.
func (c *Client) UploadFile(ctx context.Context, code, fileName string, r io.Reader) (*COA, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out COA
	if err := c.do(ctx, http.MethodPost, "/api/coas/"+url.PathEscape(code)+"/file", &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
