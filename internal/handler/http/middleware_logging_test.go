package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/logon-vault/logon-server/internal/logger"
)

// loggedRequest runs one request through withLogging with a buffer-backed
// logger in the request context and returns the captured log output.
func loggedRequest(t *testing.T, req *http.Request, handler http.HandlerFunc) string {
	t.Helper()

	var buf bytes.Buffer
	l := zerolog.New(&buf)
	req = req.WithContext(l.WithContext(req.Context()))

	h := &Handler{logger: logger.Nop()}
	rec := httptest.NewRecorder()
	h.withLogging(handler).ServeHTTP(rec, req)

	return buf.String()
}

func TestWithLogging_RecordsRequestLine(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"identifier":"alice@example.com","authHash":"aGFzaA=="}`))

	out := loggedRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/api/auth/login"`)
	assert.Contains(t, out, `"status":401`)
	assert.Contains(t, out, `"size":31`)
	assert.Contains(t, out, `"duration":`)
}

func TestWithLogging_NeverLogsRequestBody(t *testing.T) {
	body := `{"email":"alice@example.com","authHash":"c2VjcmV0aGFzaA==","salt":"c2FsdA=="}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))

	out := loggedRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	assert.NotContains(t, out, "authHash")
	assert.NotContains(t, out, "c2VjcmV0aGFzaA==")
	assert.NotContains(t, out, "alice@example.com")
}

func TestWithLogging_StripsQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/groups/42/key?email=alice@example.com", nil)

	out := loggedRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.Contains(t, out, `"path":"/api/groups/42/key"`)
	assert.NotContains(t, out, "alice@example.com")
}

func TestWithLogging_HandlerWithoutExplicitStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)

	out := loggedRequest(t, req, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"size":16`)
}
