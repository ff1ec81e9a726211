package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DocumentSummary is the poller's view of one document.
type DocumentSummary struct {
	DocumentID string `json:"documentId"`
	Category   string `json:"category"`
	FileName   string `json:"fileName"`
	Status     string `json:"status"`
}

// StatusSummary is the status endpoint's answer for one document.
type StatusSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	HasResult bool   `json:"hasResult"`
}

// Client is a thin HTTP client for the documents API, authenticating either
// with a bearer token or a guest applicant ID.
type Client struct {
	BaseURL     string
	Token       string
	ApplicantID string
	HTTPClient  *http.Client
}

// NewClient constructs a Client with a sane default timeout.
func NewClient(baseURL, token, applicantID string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Token:       token,
		ApplicantID: applicantID,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ListDocuments fetches every document owned by the caller.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	var out []DocumentSummary
	if err := c.getJSON(ctx, "/api/v1/documents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatus fetches the current status of one document. On the server side
// this also advances a PROCESSING document by one poll attempt.
func (c *Client) GetStatus(ctx context.Context, documentID string) (StatusSummary, error) {
	var out StatusSummary
	if err := c.getJSON(ctx, "/api/v1/documents/"+documentID+"/status", &out); err != nil {
		return StatusSummary{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.ApplicantID != "" {
		req.Header.Set("X-Applicant-Id", c.ApplicantID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
