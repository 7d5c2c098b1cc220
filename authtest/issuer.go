// Package authtest provides a stand-in identity provider for tests. It serves a
// JWKS document and mints access tokens that verify against it, so handlers can
// be exercised end to end without a real auth server.
//
//	issuer := authtest.NewIssuer()
//	defer issuer.Close()
//	verifier, _ := issuer.Verifier(ctx)
//	token := issuer.Token(userID, "test@example.com")
package authtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	jwtkit "github.com/PaulFidika/nekokit/jwt"
	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultAudience matches the audience the hosted identity provider stamps on user tokens.
const DefaultAudience = "authenticated"

// Issuer serves /.well-known/jwks.json and signs tokens with the matching key.
type Issuer struct {
	server   *httptest.Server
	signer   *jwtkit.RSASigner
	audience string
}

func NewIssuer() *Issuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	set, err := signer.KeySet()
	if err != nil {
		panic("failed to build key set: " + err.Error())
	}
	is := &Issuer{signer: signer, audience: DefaultAudience}
	mux := http.NewServeMux()
	mux.Handle("/.well-known/jwks.json", jwtkit.JWKSHandler(set))
	is.server = httptest.NewServer(mux)
	return is
}

// URL is the issuer claim stamped on tokens.
func (is *Issuer) URL() string { return is.server.URL }

// JWKSURL is where the public key set is served.
func (is *Issuer) JWKSURL() string { return is.server.URL + "/.well-known/jwks.json" }

func (is *Issuer) Close() { is.server.Close() }

// Verifier returns a verifier that fetches this issuer's JWKS over HTTP.
func (is *Issuer) Verifier(ctx context.Context) (*jwtkit.Verifier, error) {
	return jwtkit.NewRemoteVerifier(ctx, is.JWKSURL(), is.URL(), is.audience, time.Minute)
}

// Token mints a verified-email access token valid for an hour.
func (is *Issuer) Token(userID, email string) string {
	return is.TokenWithClaims(userID, email, map[string]any{"email_verified": true})
}

// TokenWithClaims mints a token with extra claims merged over the defaults.
func (is *Issuer) TokenWithClaims(userID, email string, extra map[string]any) string {
	claims := jwtkit.AccessClaims(is.URL(), is.audience, userID, email, time.Hour)
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := is.signer.Sign(context.Background(), jwt.MapClaims(claims))
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return tok
}

// ExpiredToken mints a token whose exp is an hour in the past.
func (is *Issuer) ExpiredToken(userID, email string) string {
	return is.TokenWithClaims(userID, email, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
}
