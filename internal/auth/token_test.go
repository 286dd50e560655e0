package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/mallofhookah/internal/backend"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
)

const testSecret = "test-secret"

func TestIssueAndVerifyToken(t *testing.T) {
	session := backend.Session{
		UserID:        uuid.New(),
		Email:         "mia@example.de",
		EmailVerified: true,
		Profile:       map[string]string{"first_name": "Mia"},
	}

	token, expiresAt, err := IssueToken(session, testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := VerifyToken(context.Background(), token, testSecret)
	require.NoError(t, err)
	actual, err := claims.Session()
	require.NoError(t, err)
	assert.Equal(t, session, actual)
}

func TestVerifyTokenRejects(t *testing.T) {
	session := backend.Session{UserID: uuid.New(), Email: "mia@example.de"}
	valid, _, err := IssueToken(session, testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	expired, _, err := IssueToken(session, testSecret, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": session.UserID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "wrong secret", token: valid, secret: "other-secret"},
		{name: "expired", token: expired, secret: testSecret},
		{name: "unsigned", token: unsigned, secret: testSecret},
		{name: "garbage", token: "not-a-token", secret: testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(context.Background(), tt.token, tt.secret)
			assert.ErrorIs(t, err, inErrors.ErrTokenInvalid)
		})
	}
}

func TestClaimsSessionRejectsBadSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "kein-uuid"}}

	_, err := claims.Session()

	assert.Error(t, err)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	session := backend.Session{UserID: uuid.New()}
	actual, ok := SessionFromContext(AttachSession(context.Background(), session))
	assert.True(t, ok)
	assert.Equal(t, session, actual)
}
