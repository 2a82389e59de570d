package http

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const saltResponseJSON = `{"salt":"c2FsdA==","recoverySalt":"cmVjb3Zlcnk=","exists":true}`

// jsonEcho answers like the salt handler does: JSON content type, 200,
// fixed body. Request bodies are echoed into a side channel when given.
func jsonEcho(captured *[]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if captured != nil && r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			r.Body.Close()
			*captured = body
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(saltResponseJSON))
	}
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(plain)
}

func TestGZip_CompressesJSONResponse(t *testing.T) {
	for _, accept := range []string{"gzip", "deflate, gzip, br", "gzip;q=1.0, identity;q=0.5"} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/salt", nil)
		req.Header.Set("Accept-Encoding", accept)

		rec := httptest.NewRecorder()
		withGZip(jsonEcho(nil)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
		assert.Equal(t, saltResponseJSON, gunzip(t, rec.Body.Bytes()))
	}
}

func TestGZip_PassThroughWithoutAcceptEncoding(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/salt", nil)

	rec := httptest.NewRecorder()
	withGZip(jsonEcho(nil)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, saltResponseJSON, rec.Body.String())
}

func TestGZip_PlainTextErrorStaysUncompressed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	withGZip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "invalid credentials\n", rec.Body.String())
}

func TestGZip_NoContentStaysEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/recover", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	withGZip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestGZip_InflatesCompressedRequestBody(t *testing.T) {
	loginJSON := `{"identifier":"alice@example.com","authHash":"aGFzaA=="}`

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(loginJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &compressed)
	req.Header.Set("Content-Encoding", "gzip")

	var captured []byte
	rec := httptest.NewRecorder()
	withGZip(jsonEcho(&captured)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, loginJSON, string(captured))
}

func TestGZip_RejectsMalformedCompressedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("definitely not gzip"))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	nextCalled := false
	withGZip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, nextCalled)
}

func TestGZip_BothDirectionsAtOnce(t *testing.T) {
	registerJSON := `{"email":"alice@example.com","authHash":"aGFzaA==","salt":"c2FsdA=="}`

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(registerJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &compressed)
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")

	var captured []byte
	rec := httptest.NewRecorder()
	withGZip(jsonEcho(&captured)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, registerJSON, string(captured))
	assert.Equal(t, saltResponseJSON, gunzip(t, rec.Body.Bytes()))
}

func TestGZip_SequentialRequestsReusePooledWriters(t *testing.T) {
	handler := withGZip(jsonEcho(nil))

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/salt", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, saltResponseJSON, gunzip(t, rec.Body.Bytes()))
	}
}
