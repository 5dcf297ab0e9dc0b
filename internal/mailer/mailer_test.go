package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoClient_Send(t *testing.T) {
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBrevoClient("secret", "noreply@example.com", "Intake")
	c.endpoint = srv.URL

	require.NoError(t, c.Send(context.Background(), "a@example.com", "Hi", "<p>x</p>"))
	assert.Equal(t, "noreply@example.com", got.Sender.Email)
	assert.Equal(t, "a@example.com", got.To[0].Email)
	assert.Equal(t, "<p>x</p>", got.HTMLContent)
}

func TestBrevoClient_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Key not found"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("bad", "noreply@example.com", "Intake")
	c.endpoint = srv.URL

	err := c.Send(context.Background(), "a@example.com", "Hi", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	assert.Error(t, c.Send(context.Background(), "", "Hi", "<p>x</p>"))
}

func TestTemplates(t *testing.T) {
	_, html, err := OTPEmail("123456", 10)
	require.NoError(t, err)
	assert.Contains(t, html, "123456")

	_, html, err = ConfirmationEmail("id-1", "<b>Ann</b>", "seo")
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;Ann&lt;/b&gt;")
}

func TestLogMailer(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	assert.NoError(t, NewLogMailer(logger).Send(context.Background(), "a@example.com", "s", "b"))
}
