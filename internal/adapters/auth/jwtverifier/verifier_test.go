package jwtverifier

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := New("s3cret", "crm-idp")
	require.NoError(t, err)

	tok, err := v.Sign("sdr-1", "sdr", []string{"leads:read"}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "sdr-1", claims.UserID)
	assert.Equal(t, "sdr", claims.Role)
	assert.Equal(t, []string{"leads:read"}, claims.Permissions)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := New("s3cret", "crm-idp")
	require.NoError(t, err)
	ctx := context.Background()

	other, err := New("other", "crm-idp")
	require.NoError(t, err)
	forged, err := other.Sign("admin-1", "admin", nil, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := New("s3cret", "someone-else")
	require.NoError(t, err)
	tok, err := wrongIssuer.Sign("admin-1", "admin", nil, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: "sdr",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sdr-1",
			Issuer:    "crm-idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := v.Sign("", "sdr", nil, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New("  ", "")
	assert.ErrorIs(t, err, ErrNoSecret)
}
