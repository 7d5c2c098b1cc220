package jwtkit

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims are the identity fields read from a verified access token. Email and
// verification state are read from the identity store, not the token.
type Claims struct {
	Subject string
	Role    string
}

// Verifier validates bearer tokens against issuer, audience, and a key set.
type Verifier struct {
	issuer   string
	audience string
	keySet   jwk.Set
	skew     time.Duration
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithSkew tolerates clock drift when checking exp/iat/nbf.
func WithSkew(d time.Duration) VerifierOpt {
	return func(v *Verifier) { v.skew = d }
}

// NewVerifier builds a verifier over a fixed key set. An empty issuer is not checked.
func NewVerifier(issuer, audience string, keySet jwk.Set, opts ...VerifierOpt) *Verifier {
	v := &Verifier{issuer: issuer, audience: audience, keySet: keySet, skew: 30 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewRemoteVerifier fetches the JWKS at jwksURL and keeps it refreshed in the background
// until ctx is cancelled.
func NewRemoteVerifier(ctx context.Context, jwksURL, issuer, audience string, refresh time.Duration, opts ...VerifierOpt) (*Verifier, error) {
	if strings.TrimSpace(jwksURL) == "" {
		return nil, errors.New("jwks url required")
	}
	if refresh <= 0 {
		refresh = 15 * time.Minute
	}
	c := jwk.NewCache(ctx)
	if err := c.Register(jwksURL, jwk.WithMinRefreshInterval(refresh)); err != nil {
		return nil, fmt.Errorf("register jwks: %w", err)
	}
	if _, err := c.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	return NewVerifier(issuer, audience, jwk.NewCachedSet(c, jwksURL), opts...), nil
}

// KeySetFromRSA wraps a single RSA public key as a key set.
func KeySetFromRSA(pub *rsa.PublicKey, kid string) (jwk.Set, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return set, nil
}

// Verify validates raw and extracts its identity claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if v == nil || v.keySet == nil {
		return nil, errors.New("jwt: missing key set")
	}
	opts := []jwt.ParseOption{
		jwt.WithKeySet(v.keySet),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithContext(ctx),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return nil, err
	}
	claims := &Claims{Subject: token.Subject()}
	if rawRole, ok := token.Get("role"); ok {
		if role, ok := rawRole.(string); ok {
			claims.Role = role
		}
	}
	return claims, nil
}
