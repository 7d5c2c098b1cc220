package jwtkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) (*RSASigner, *Verifier) {
	t.Helper()
	signer, err := NewRSASigner(2048, "kid-1")
	require.NoError(t, err)
	set, err := KeySetFromRSA(signer.PublicKey(), signer.KID())
	require.NoError(t, err)
	return signer, NewVerifier("https://issuer.test", "authenticated", set)
}

func TestVerifier_AcceptsSignedToken(t *testing.T) {
	signer, v := newTestVerifier(t)
	claims := AccessClaims("https://issuer.test", "authenticated", "user-1", "a@b.test", time.Hour)
	tok, err := signer.Sign(context.Background(), claims)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "authenticated", got.Role)
}

func TestVerifier_RejectsExpired(t *testing.T) {
	signer, v := newTestVerifier(t)
	tok, err := signer.Sign(context.Background(), AccessClaims("https://issuer.test", "authenticated", "user-1", "a@b.test", -time.Hour))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestVerifier_RejectsWrongAudience(t *testing.T) {
	signer, v := newTestVerifier(t)
	tok, err := signer.Sign(context.Background(), AccessClaims("https://issuer.test", "other", "user-1", "a@b.test", time.Hour))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestVerifier_RejectsForeignKey(t *testing.T) {
	_, v := newTestVerifier(t)
	other, err := NewRSASigner(2048, "kid-1")
	require.NoError(t, err)
	tok, err := other.Sign(context.Background(), AccessClaims("https://issuer.test", "authenticated", "user-1", "a@b.test", time.Hour))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	_, v := newTestVerifier(t)
	_, err := v.Verify(context.Background(), "not-a-token")
	assert.Error(t, err)
}
