// Package zipcloud resolves Japanese postal codes to addresses via the
// zipcloud web API.
package zipcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
)

const defaultBaseURL = "https://zipcloud.ibsnet.co.jp/api/search"

// ErrNotFound is returned when the postal code resolves to no address.
var ErrNotFound = fmt.Errorf("zipcloud: address not found")

// Client implements port.AddressLookup
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new zipcloud client
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type searchResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Results []struct {
		ZipCode    string `json:"zipcode"`
		Prefecture string `json:"address1"`
		City       string `json:"address2"`
		Town       string `json:"address3"`
	} `json:"results"`
}

// Lookup resolves a 7-digit postal code to an address.
func (c *Client) Lookup(ctx context.Context, zipCode string) (*port.Address, error) {
	reqURL := fmt.Sprintf("%s?zipcode=%s", c.baseURL, url.QueryEscape(zipCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build zipcloud request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Zipcloud request failed", zap.String("zipcode", zipCode), zap.Error(err))
		return nil, fmt.Errorf("zipcloud request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zipcloud returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode zipcloud response: %w", err)
	}

	if body.Status != http.StatusOK {
		return nil, fmt.Errorf("zipcloud error: %s", body.Message)
	}
	if len(body.Results) == 0 {
		return nil, ErrNotFound
	}

	first := body.Results[0]
	return &port.Address{
		ZipCode:    first.ZipCode,
		Prefecture: first.Prefecture,
		City:       first.City,
		Town:       first.Town,
	}, nil
}

var _ port.AddressLookup = (*Client)(nil)
