package invoices

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
	errInvoiceBaseURLRequired = errors.New("invoice service base url is required")
	errInvoiceTokenRequired   = errors.New("invoice service api token is required")
)

// Client consumes the invoice service over HTTP. The payment retry worker
// uses it to pull failed invoices and to report attempt outcomes back to
// the invoice owner.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	logger   *logger.Logger
}

// NewClient validates the invoice service endpoint configuration.
func NewClient(cfg config.InvoiceServiceConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errInvoiceBaseURLRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errInvoiceTokenRequired
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

type invoiceListEnvelope struct {
	Data struct {
		Invoices []records.Invoice `json:"invoices"`
		Dropped  int               `json:"dropped"`
	} `json:"data"`
}

// ListFailed pulls every invoice currently in the failed payment state.
func (c *Client) ListFailed(ctx context.Context) ([]records.Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/invoices/failed", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build failed-invoices request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch failed invoices")
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("invoice service returned %d", resp.StatusCode))
	}
	var envelope invoiceListEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode failed invoices")
	}
	return envelope.Data.Invoices, nil
}

type invoiceEnvelope struct {
	Data records.Invoice `json:"data"`
}

// Create registers a new invoice with the invoice service. The billing
// worker calls this once per due customer.
func (c *Client) Create(ctx context.Context, params CreateParams) (*records.Invoice, error) {
	body, err := json.Marshal(map[string]any{
		"customer_id":    params.CustomerID,
		"amount":         params.Amount,
		"due_date":       params.DueDate,
		"payment_status": params.PaymentStatus,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode invoice")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build create-invoice request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("invoice service returned %d", resp.StatusCode))
	}

	var envelope invoiceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode created invoice")
	}
	return &envelope.Data, nil
}

// MarkPaid reports a successful payment attempt for the invoice.
func (c *Client) MarkPaid(ctx context.Context, invoiceID string) error {
	return c.report(ctx, invoiceID, "pay")
}

// MarkFailed reports a failed payment attempt for the invoice.
func (c *Client) MarkFailed(ctx context.Context, invoiceID string) error {
	return c.report(ctx, invoiceID, "failed-payment")
}

func (c *Client) report(ctx context.Context, invoiceID, action string) error {
	if invoiceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	url := fmt.Sprintf("%s/api/invoices/%s/%s", c.baseURL, invoiceID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build invoice report request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report payment outcome")
	}
	defer drain(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("invoice service returned %d", resp.StatusCode))
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
