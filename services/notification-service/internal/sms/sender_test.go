package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, " secret ")
	require.NoError(t, s.Send(context.Background(), "555-0101", "hello"))
	assert.Equal(t, map[string]string{"to": "555-0101", "body": "hello"}, got)
	assert.Equal(t, "Bearer secret", auth)
}

func TestWebhookSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.ErrorContains(t, NewWebhookSender(srv.URL, "").Send(context.Background(), "1", "x"), "502")
	assert.Error(t, NewWebhookSender("", "").Send(context.Background(), "1", "x"))
}

type fakeMessages struct {
	params *twilioapi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(p *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = p
	return &twilioapi.ApiV2010Message{}, f.err
}

func TestTwilioSender(t *testing.T) {
	api := &fakeMessages{}
	s := &TwilioSender{api: api, from: "+15550000"}
	require.NoError(t, s.Send(context.Background(), "+15550101", "reminder"))
	require.NotNil(t, api.params.To)
	assert.Equal(t, "+15550101", *api.params.To)
	assert.Equal(t, "+15550000", *api.params.From)
	assert.Equal(t, "reminder", *api.params.Body)

	api.err = errors.New("21211 invalid number")
	assert.ErrorContains(t, s.Send(context.Background(), "bad", "x"), "21211")

	_, err := NewTwilioSender("", "", "")
	assert.Error(t, err)
}
