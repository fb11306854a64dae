// Package loyalty reads customer names, balances and membership codes from
// the Voucherify API.
package loyalty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loyalty-wallet-bridge/internal/config"
	"loyalty-wallet-bridge/internal/models"
	"loyalty-wallet-bridge/internal/tracing"
)

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// Client is a Voucherify API client.
type Client struct {
	baseURL     string
	appID       string
	secretKey   string
	channel     string
	programID   string
	programName string
	http        *http.Client
	logger      *zap.Logger
}

// NewClient creates a Voucherify client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg config.LoyaltyConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := cfg.Channel
	if channel == "" {
		channel = config.DefaultLoyaltyChannel
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		appID:       cfg.ApplicationID,
		secretKey:   cfg.SecretKey,
		channel:     channel,
		programID:   cfg.ProgramID,
		programName: cfg.ProgramName,
		http:        httpClient,
		logger:      logger,
	}
}

// upstreamError is a non-2xx answer from Voucherify.
type upstreamError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("voucherify %s returned HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

// FetchCustomerLoyaltyData returns the name, balance and loyalty code for a
// customer. The customer record and, when a program is configured, the
// program membership are fetched in parallel. Any failure yields
// models.DefaultLoyaltyData so pass provisioning never fails on enrichment.
func (c *Client) FetchCustomerLoyaltyData(ctx context.Context, customerID string) models.LoyaltyData {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "loyalty.FetchCustomerLoyaltyData")
	defer span.End()
	span.SetAttributes(attribute.Bool("loyalty.membership_lookup", c.programID != ""))

	var (
		customer models.VoucherifyCustomer
		members  models.VoucherifyMembers
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, "/v1/customers/"+url.PathEscape(customerID), &customer)
	})
	if c.programID != "" {
		g.Go(func() error {
			path := "/v1/loyalties/" + url.PathEscape(c.programID) + "/members?customer=" + url.QueryEscape(customerID)
			return c.get(gctx, path, &members)
		})
	}

	if err := g.Wait(); err != nil {
		tracing.RecordFailure(span, err, "voucherify request failed")
		c.logger.Warn("Voucherify request failed, using defaults",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return models.DefaultLoyaltyData(customerID)
	}

	data := models.DefaultLoyaltyData(customerID)
	if customer.Name != nil {
		data.Name = *customer.Name
	}
	if points, ok := customer.CampaignPoints(c.programName); ok {
		data.Points = points
	}
	data.LoyaltyCode = members.FirstCode()

	return data
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-App-Id", c.appID)
	req.Header.Set("X-App-Token", c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Voucherify-Channel", c.channel)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("voucherify %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &upstreamError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode voucherify %s: %w", path, err)
	}
	return nil
}
