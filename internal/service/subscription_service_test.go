package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newSubscriptionService(verifyURL string) *SubscriptionService {
	return NewSubscriptionService(nil, zap.NewNop(), SubscriptionConfig{VerifyURL: verifyURL})
}

func TestIsSubscribedActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user@example.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.True(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedInactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active":false}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedFailsClosedOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedFailsClosedOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedFailsClosedOnUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedDisabledWithoutVerifyURL(t *testing.T) {
	svc := newSubscriptionService("")
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", "user@example.com"))
}

func TestIsSubscribedRequiresEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider should not be called without an email")
	}))
	defer srv.Close()

	svc := newSubscriptionService(srv.URL)
	assert.False(t, svc.IsSubscribed(context.Background(), "u1", ""))
}
