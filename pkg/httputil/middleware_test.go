package httputil_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ksp/warehouse/pkg/actor"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDReusesGatewayHeader(t *testing.T) {
	var requestID, correlationID string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = httputil.GetRequestID(r.Context())
		correlationID = messaging.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := testutil.Serve(h, req)

	assert.Equal(t, "req-123", requestID)
	assert.Equal(t, "req-123", correlationID)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var requestID string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = httputil.GetRequestID(r.Context())
	}))

	rr := testutil.Serve(h, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.Len(t, requestID, 36)
	assert.Equal(t, requestID, rr.Header().Get("X-Request-ID"))
}

func TestActorFromHeaders(t *testing.T) {
	var got *actor.Actor
	h := httputil.Actor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = actor.FromContext(r.Context())
	}))

	testutil.Serve(h, testutil.AsUser(httptest.NewRequest(http.MethodGet, "/", nil), testutil.Storekeeper))
	require.NotNil(t, got)
	assert.Equal(t, "u-7", got.ID)
	assert.Equal(t, "Jan Kowalski", got.Name)

	got = nil
	testutil.Serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, got)
}

func TestRecovererWritesErrorEnvelope(t *testing.T) {
	var logs bytes.Buffer
	h := httputil.Recoverer(logger.NewWithWriter(&logs, "test"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("shelf vanished")
	}))

	rr := testutil.Serve(h, httptest.NewRequest(http.MethodPost, "/items/bulk-add", nil))
	testutil.AssertErrorCode(t, rr, http.StatusInternalServerError, "INTERNAL_ERROR")
	assert.Contains(t, logs.String(), "panic recovered")
	assert.NotContains(t, rr.Body.String(), "shelf vanished")
}
