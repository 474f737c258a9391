package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billifyhq/billify-backend/pkg/config"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.NotificationsConfig{
		BaseURL:  srv.URL,
		APIToken: "notify-token",
		Timeout:  5 * time.Second,
	}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return client
}

func TestSendEmailPostsGatewayPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/email", r.URL.Path)
		assert.Equal(t, "Bearer notify-token", r.Header.Get("Authorization"))

		var body struct {
			To        []string `json:"to"`
			Subject   string   `json:"subject"`
			EmailBody string   `json:"emailBody"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"ada@example.com"}, body.To)
		assert.Equal(t, "Your Billify MONTHLY Invoice has been Generated!", body.Subject)
		assert.NotEmpty(t, body.EmailBody)
	}))

	err := client.SendEmail(context.Background(), []string{"ada@example.com"}, "Your Billify MONTHLY Invoice has been Generated!", "Dear Ada, ...")
	require.NoError(t, err)
}

func TestSendEmailRequiresRecipient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	err := client.SendEmail(context.Background(), nil, "subject", "body")
	require.Error(t, err)
}

func TestSendEmailPropagatesGatewayError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.SendEmail(context.Background(), []string{"ada@example.com"}, "subject", "body")
	require.Error(t, err)
}
