package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akshaya-auth/internal/config"
)

func TestTwilioNotifierSend(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewTwilioNotifier(config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
		APIBaseURL: srv.URL,
	})

	require.NoError(t, n.Send(context.Background(), "+919876543210", "482915"))

	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "+15550001111", gotFrom)
	assert.Equal(t, "Your Akshaya E-Services verification code is: 482915. Valid for 5 minutes.", gotBody)
}

func TestTwilioNotifierGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": 20003}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTwilioNotifier(config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "wrong",
		FromNumber: "+15550001111",
		APIBaseURL: srv.URL,
	})

	err := n.Send(context.Background(), "+919876543210", "482915")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewNotifierSelection(t *testing.T) {
	n := NewNotifier(config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
		APIBaseURL: "https://api.twilio.com/2010-04-01",
	})
	assert.IsType(t, &TwilioNotifier{}, n)

	// Missing credentials fall back to the dev notifier
	n = NewNotifier(config.SMSConfig{})
	assert.IsType(t, &DevNotifier{}, n)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********3210", MaskPhone("+919876543210"))
	assert.Equal(t, "****", MaskPhone("123"))
}
