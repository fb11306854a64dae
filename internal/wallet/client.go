// Package wallet builds, signs and manages Google Wallet generic passes.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"loyalty-wallet-bridge/internal/models"
	"loyalty-wallet-bridge/internal/tracing"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the Wallet API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wallet api %s %s returned HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the Wallet API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ClassProvisioningError is returned when the class can be neither found
// nor created.
type ClassProvisioningError struct {
	ClassID string
	Op      string
	Err     error
}

func (e *ClassProvisioningError) Error() string {
	return fmt.Sprintf("wallet: %s class %s: %v", e.Op, e.ClassID, e.Err)
}

func (e *ClassProvisioningError) Unwrap() error {
	return e.Err
}

// Client calls the Google Wallet REST API. The http.Client is expected to
// authenticate requests itself (see credentials.Credential.HTTPClient).
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Wallet API client.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// EnsureClassExists creates class unless it already exists. It reports
// whether a create call was made.
func (c *Client) EnsureClassExists(ctx context.Context, class models.GenericClass) (bool, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "wallet.EnsureClassExists")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.class_id", class.ID))

	err := c.do(ctx, http.MethodGet, "/genericClass/"+class.ID, nil, nil)
	if err == nil {
		c.logger.Debug("Class already exists", zap.String("class_id", class.ID))
		return false, nil
	}
	if !IsNotFound(err) {
		tracing.RecordFailure(span, err, "class lookup failed")
		return false, &ClassProvisioningError{ClassID: class.ID, Op: "get", Err: err}
	}

	var created models.GenericClass
	if err := c.do(ctx, http.MethodPost, "/genericClass", class, &created); err != nil {
		tracing.RecordFailure(span, err, "class insert failed")
		return false, &ClassProvisioningError{ClassID: class.ID, Op: "insert", Err: err}
	}

	c.logger.Info("Class inserted", zap.String("class_id", class.ID))
	return true, nil
}

// PatchObjectPoints updates only the points module of an existing object.
func (c *Client) PatchObjectPoints(ctx context.Context, objectID, points string) error {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "wallet.PatchObjectPoints")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.object_id", objectID))

	patch := models.PointsPatch{
		ID:              objectID,
		TextModulesData: []models.TextModuleData{pointsModule(points)},
	}
	path := "/genericObject/" + url.PathEscape(objectID) + "?updateMask=textModulesData"
	if err := c.do(ctx, http.MethodPatch, path, patch, nil); err != nil {
		tracing.RecordFailure(span, err, "object patch failed")
		return fmt.Errorf("wallet: patch object %s: %w", objectID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wallet api %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(msg)}
	}

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
