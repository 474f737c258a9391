package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/billifyhq/billify-backend/pkg/config"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/records"
)

var (
	errBaseURLRequired = errors.New("directory base url is required")
	errTokenRequired   = errors.New("directory api token is required")
)

// Client fetches customer and subscription snapshots from the directory
// service and pushes billing-date advances back through it. The directory
// owns both record types; the billing engine never writes them directly.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	logger   *logger.Logger
}

// NewClient validates the directory endpoint configuration.
func NewClient(cfg config.DirectoryConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errTokenRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http:     &http.Client{Timeout: timeout},
		logger:   logg,
	}, nil
}

type customersEnvelope struct {
	Customers []records.Customer `json:"customers"`
}

type customerEnvelope struct {
	Customer records.Customer `json:"customer"`
}

type subscriptionsEnvelope struct {
	Subscriptions []records.Subscription `json:"subscriptions"`
}

// ListCustomers pulls the full customer snapshot.
func (c *Client) ListCustomers(ctx context.Context) ([]records.Customer, error) {
	var envelope customersEnvelope
	if err := c.get(ctx, "/api/customers", &envelope); err != nil {
		return nil, err
	}
	return envelope.Customers, nil
}

// GetCustomer pulls a single customer by ID.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*records.Customer, error) {
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	var envelope customerEnvelope
	if err := c.get(ctx, "/api/customers/"+customerID, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Customer, nil
}

// ListSubscriptions pulls the full plan snapshot.
func (c *Client) ListSubscriptions(ctx context.Context) ([]records.Subscription, error) {
	var envelope subscriptionsEnvelope
	if err := c.get(ctx, "/api/subscriptions", &envelope); err != nil {
		return nil, err
	}
	return envelope.Subscriptions, nil
}

// UpdateNextBillingDate asks the directory to advance the customer's next
// billing date. The body is a partial update; other fields stay untouched.
func (c *Client) UpdateNextBillingDate(ctx context.Context, customerID string, next time.Time) error {
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	body, err := json.Marshal(map[string]any{"next_billing_date": next})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode customer update")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/customers/"+customerID, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build customer update request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer billing date")
	}
	defer drain(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("directory returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build directory request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch from directory")
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("directory returned %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode directory response")
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
