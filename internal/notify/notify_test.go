package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressUpdateEmail(t *testing.T) {
	msg, err := notify.ProgressUpdateEmail(notify.ProgressUpdate{
		ClientName:  "Jane",
		ClientEmail: "jane@example.com",
		ProjectName: "Lake House",
		Division:    "Roof",
		Progress:    60,
		Description: "Trusses installed",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"jane@example.com"}, msg.To)
	assert.Equal(t, "New Progress Update for Your Project", msg.Subject)
	assert.Contains(t, msg.Text, "Dear Jane,")
	assert.Contains(t, msg.Text, `your project "Lake House"`)
	assert.Contains(t, msg.Text, "Division: Roof, Progress: 60%, Description: Trusses installed.")
	assert.Contains(t, msg.Text, "The BuildTrue Team")
}

func TestProgressUpdateEmailDefaultsClientName(t *testing.T) {
	msg, err := notify.ProgressUpdateEmail(notify.ProgressUpdate{ClientEmail: "x@example.com", TeamName: "Acme"})
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Dear Client,")
	assert.Contains(t, msg.Text, "Acme")
}

func TestResendMailer(t *testing.T) {
	var got map[string]interface{}
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer server.Close()

	mailer := notify.NewResendMailer("re_test", "BuildTrue <noreply@example.com>", server.URL)
	err := mailer.Send(context.Background(), notify.Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "Body"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "BuildTrue <noreply@example.com>", got["from"])
	assert.Equal(t, "Hi", got["subject"])
	assert.Equal(t, "Body", got["text"])
	assert.Equal(t, []interface{}{"a@example.com"}, got["to"])
}

func TestResendMailerRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	mailer := notify.NewResendMailer("re_test", "bad", server.URL)
	err := mailer.Send(context.Background(), notify.Message{To: []string{"a@example.com"}, Subject: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestResendMailerRequiresKey(t *testing.T) {
	err := notify.NewResendMailer("", "from", "").Send(context.Background(), notify.Message{})
	assert.Error(t, err)
}
