package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/bizkit/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, inboundID string) (responseID, contextID string) {
		t.Helper()
		var captured string
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = requestid.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inboundID != "" {
			req.Header.Set(requestid.Header, inboundID)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header().Get(requestid.Header), captured
	}

	t.Run("generates an ID when absent", func(t *testing.T) {
		t.Parallel()
		responseID, contextID := serve(t, "")
		require.NotEmpty(t, responseID)
		assert.Equal(t, responseID, contextID)
		_, err := uuid.Parse(responseID)
		assert.NoError(t, err)
	})

	t.Run("propagates a valid inbound ID", func(t *testing.T) {
		t.Parallel()
		responseID, contextID := serve(t, "req-abc_123")
		assert.Equal(t, "req-abc_123", responseID)
		assert.Equal(t, "req-abc_123", contextID)
	})

	t.Run("replaces a malformed inbound ID", func(t *testing.T) {
		t.Parallel()
		responseID, _ := serve(t, "bad id\nwith newline")
		assert.NotEqual(t, "bad id\nwith newline", responseID)
		_, err := uuid.Parse(responseID)
		assert.NoError(t, err)
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(t.Context()))

	ctx := requestid.WithContext(t.Context(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))
}
