package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"regwatch/internal/model"
)

func testConfig() Config {
	return Config{
		Host:       "smtp.example.com",
		Port:       587,
		Username:   "alerts@example.com",
		Password:   "app-password",
		From:       "alerts@example.com",
		Recipients: []string{"a@example.com", "b@example.com"},
	}
}

var items = []model.Item{
	{Title: "Rule X", URL: "https://a/1"},
	{Title: "Rule Y", URL: "https://a/2"},
}

func TestNotify_BuildsDigest(t *testing.T) {
	sender := NewSender(testConfig())
	var captured *mail.Msg
	sender.send = func(_ context.Context, msg *mail.Msg) error {
		captured = msg
		return nil
	}

	require.NoError(t, sender.Notify(context.Background(), items))
	require.NotNil(t, captured)

	rcpts, err := captured.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, rcpts)
	assert.Equal(t, []string{"New Content"}, captured.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = captured.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Here are the new links:")
	assert.Contains(t, buf.String(), "Rule X: https://a/1")
	assert.Contains(t, buf.String(), "Rule Y: https://a/2")
}

func TestNotify_EmptyDoesNothing(t *testing.T) {
	sender := NewSender(testConfig())
	sender.send = func(context.Context, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}

	assert.NoError(t, sender.Notify(context.Background(), nil))
}

func TestNotify_MissingCredential(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""

	err := NewSender(cfg).Notify(context.Background(), items)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestNotify_NoRecipients(t *testing.T) {
	cfg := testConfig()
	cfg.Recipients = nil

	err := NewSender(cfg).Notify(context.Background(), items)
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestNotify_InvalidSender(t *testing.T) {
	cfg := testConfig()
	cfg.From = "not an address"

	err := NewSender(cfg).Notify(context.Background(), items)
	assert.Error(t, err)
}

func TestNotify_SendFailureIsWrapped(t *testing.T) {
	sender := NewSender(testConfig())
	authErr := errors.New("535 authentication failed")
	sender.send = func(context.Context, *mail.Msg) error { return authErr }

	err := sender.Notify(context.Background(), items)
	assert.ErrorIs(t, err, authErr)
}
