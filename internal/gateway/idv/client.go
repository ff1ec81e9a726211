package idv

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kyc-backend/internal/gateway"
	"kyc-backend/internal/shared/metrics"
)

const (
	classifyPath      = "/v1/classify"
	verificationsPath = "/v1/verifications"
	authHeader        = "X-IDV-Authorization"
)

// Checks requested on every submission. The capability runs these against
// the document image and reports per-check results in the poll payload.
var requestedChecks = []string{"AUTHENTICITY", "TAMPER", "EXPIRY"}

// Client implements gateway.Verifier against the IDV provider's HTTP API.
type Client struct {
	baseURL    string
	authValue  string
	httpClient *http.Client
}

// NewClient constructs a Client. The credential is a single signed
// authorization value computed once from the key/secret pair; the provider
// issues long-lived credentials, so there is no refresh.
func NewClient(baseURL, appKey, appSecret string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("VERIFIER_BASE_URL is required")
	}
	if strings.TrimSpace(appKey) == "" || strings.TrimSpace(appSecret) == "" {
		return nil, fmt.Errorf("VERIFIER_APP_KEY and VERIFIER_APP_SECRET are required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authValue: signCredential(appKey, appSecret),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func signCredential(appKey, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(appKey))
	return appKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

type classifyRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

type classifyResponse struct {
	Country      *gateway.CodeName `json:"country"`
	DocumentType *gateway.CodeName `json:"documentType"`
	Error        *apiError         `json:"error"`
}

type submitRequest struct {
	Image            string   `json:"image"`
	MimeType         string   `json:"mimeType"`
	CountryCode      string   `json:"countryCode"`
	DocumentTypeCode string   `json:"documentTypeCode"`
	ReferenceID      string   `json:"referenceId"`
	Checks           []string `json:"checks"`
}

type submitResponse struct {
	VerificationID string    `json:"verificationId"`
	Status         string    `json:"status"`
	Error          *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Classify infers the document's country and type from its image.
func (c *Client) Classify(ctx context.Context, image []byte, mimeType string) (gateway.ClassificationResult, error) {
	body := classifyRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MimeType: mimeType,
	}

	var parsed classifyResponse
	err := c.postJSON(ctx, "classify", classifyPath, body, &parsed)
	if err != nil {
		return gateway.ClassificationResult{}, fmt.Errorf("%w: %v", gateway.ErrClassify, err)
	}
	if parsed.Error != nil {
		return gateway.ClassificationResult{}, fmt.Errorf("%w: %s (%s)", gateway.ErrClassify, parsed.Error.Message, parsed.Error.Code)
	}

	return gateway.ClassificationResult{
		Country:      parsed.Country,
		DocumentType: parsed.DocumentType,
	}, nil
}

// Submit sends the document for verification under a stable reference.
func (c *Client) Submit(ctx context.Context, image []byte, mimeType, countryCode, documentTypeCode, idempotencyRef string) (gateway.SubmitResult, error) {
	body := submitRequest{
		Image:            base64.StdEncoding.EncodeToString(image),
		MimeType:         mimeType,
		CountryCode:      countryCode,
		DocumentTypeCode: documentTypeCode,
		ReferenceID:      idempotencyRef,
		Checks:           requestedChecks,
	}

	var parsed submitResponse
	err := c.postJSON(ctx, "submit", verificationsPath, body, &parsed)
	if err != nil {
		return gateway.SubmitResult{}, fmt.Errorf("%w: %v", gateway.ErrSubmit, err)
	}
	if parsed.Error != nil {
		return gateway.SubmitResult{}, fmt.Errorf("%w: %s (%s)", gateway.ErrSubmit, parsed.Error.Message, parsed.Error.Code)
	}
	if parsed.VerificationID == "" {
		return gateway.SubmitResult{}, fmt.Errorf("%w: response missing verificationId", gateway.ErrSubmit)
	}

	return gateway.SubmitResult{
		VerificationID: parsed.VerificationID,
		Status:         parsed.Status,
	}, nil
}

// PollResult fetches the current state of a verification. Read-only.
func (c *Client) PollResult(ctx context.Context, verificationID string) (gateway.PollResult, error) {
	if strings.TrimSpace(verificationID) == "" {
		return gateway.PollResult{}, fmt.Errorf("%w: verification id is required", gateway.ErrPoll)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+verificationsPath+"/"+verificationID, nil)
	if err != nil {
		return gateway.PollResult{}, fmt.Errorf("%w: %v", gateway.ErrPoll, err)
	}
	req.Header.Set(authHeader, c.authValue)

	raw, err := c.do(req, "poll", start)
	if err != nil {
		return gateway.PollResult{}, fmt.Errorf("%w: %v", gateway.ErrPoll, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return gateway.PollResult{}, fmt.Errorf("%w: response parse: %v", gateway.ErrPoll, err)
	}

	state, _ := payload["status"].(string)
	switch state {
	case gateway.ExternalProcessing, gateway.ExternalDone, gateway.ExternalFailed:
	default:
		return gateway.PollResult{}, fmt.Errorf("%w: unknown status %q", gateway.ErrPoll, state)
	}

	return gateway.PollResult{State: state, Payload: payload}, nil
}

func (c *Client) postJSON(ctx context.Context, operation, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set(authHeader, c.authValue)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, operation, start)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("response parse: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, operation string, start time.Time) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveVerifierCall(operation, "error", time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveVerifierCall(operation, "error", time.Since(start).Seconds())
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveVerifierCall(operation, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	metrics.ObserveVerifierCall(operation, "ok", time.Since(start).Seconds())
	return raw, nil
}

func truncate(raw []byte, max int) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}

var _ gateway.Verifier = (*Client)(nil)
