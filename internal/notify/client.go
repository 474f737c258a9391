package notify

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
)

var (
	errNotifyBaseURLRequired = errors.New("notification base url is required")
	errNotifyTokenRequired   = errors.New("notification api token is required")
)

// Client delivers email through the notification gateway. Delivery itself
// (provider, templating engine, bounces) lives behind the gateway.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	logger   *logger.Logger
}

// NewClient validates the gateway endpoint configuration.
func NewClient(cfg config.NotificationsConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errNotifyBaseURLRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errNotifyTokenRequired
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

type emailRequest struct {
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	EmailBody string   `json:"emailBody"`
}

// SendEmail posts a message to the gateway's email endpoint.
func (c *Client) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}
	payload, err := json.Marshal(emailRequest{To: to, Subject: subject, EmailBody: body})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode email request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/email", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build email request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("notification gateway returned %d", resp.StatusCode))
	}
	return nil
}
