package jwtkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWKSHandler_ServesPublicKeyWithETag(t *testing.T) {
	signer, err := NewRSASigner(2048, "kid-7")
	require.NoError(t, err)
	set, err := signer.KeySet()
	require.NoError(t, err)
	h := JWKSHandler(set)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	parsed, err := jwk.Parse(w.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, parsed.Len())
	key, _ := parsed.Key(0)
	assert.Equal(t, "kid-7", key.KeyID())
	assert.NotContains(t, w.Body.String(), `"d"`)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}
