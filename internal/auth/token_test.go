package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, "finsight")
	id := uuid.New()

	raw, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokens_Verify(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewTokens("secret", time.Hour, "finsight")
	issuer.now = func() time.Time { return issued }

	raw, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	type testCase struct {
		name     string
		verifier func() *Tokens
		token    string
		wantErr  error
	}

	tests := []testCase{
		{
			name: "Expired",
			verifier: func() *Tokens {
				v := NewTokens("secret", time.Hour, "finsight")
				v.now = func() time.Time { return issued.Add(2 * time.Hour) }
				return v
			},
			token:   raw,
			wantErr: ErrTokenExpired,
		},
		{
			name: "WrongSecret",
			verifier: func() *Tokens {
				v := NewTokens("other", time.Hour, "finsight")
				v.now = func() time.Time { return issued }
				return v
			},
			token:   raw,
			wantErr: ErrTokenInvalid,
		},
		{
			name: "WrongIssuer",
			verifier: func() *Tokens {
				v := NewTokens("secret", time.Hour, "someone-else")
				v.now = func() time.Time { return issued }
				return v
			},
			token:   raw,
			wantErr: ErrTokenInvalid,
		},
		{
			name:     "Garbage",
			verifier: func() *Tokens { return NewTokens("secret", time.Hour, "finsight") },
			token:    "not.a.token",
			wantErr:  ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier().Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokens_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "finsight",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour, "finsight").Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	require.NoError(t, h.Compare(hash, "s3cret-pass"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
}
