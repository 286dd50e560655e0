package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
)

type Claims struct {
	jwt.RegisteredClaims
	Email         string            `json:"email"`
	EmailVerified bool              `json:"email_verified"`
	UserMetadata  map[string]string `json:"user_metadata,omitempty"`
}

func (cl Claims) Session() (backend.Session, error) {
	userID, err := uuid.Parse(cl.Subject)
	if err != nil {
		return backend.Session{}, fmt.Errorf("failed parsing subject=%s with error=%w", cl.Subject, err)
	}
	profile := map[string]string{}
	for k, v := range cl.UserMetadata {
		profile[k] = v
	}
	return backend.Session{
		UserID:        userID,
		Email:         cl.Email,
		EmailVerified: cl.EmailVerified,
		Profile:       profile,
	}, nil
}

func IssueToken(session backend.Session, secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.APP_STOREFRONT,
			Subject:   session.UserID.String(),
			Audience:  jwt.ClaimStrings{constants.AUDIENCE_USER},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email:         session.Email,
		EmailVerified: session.EmailVerified,
		UserMetadata:  session.Profile,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed signing token with error=%w", err)
	}
	return signed, expiresAt, nil
}

func VerifyToken(c context.Context, token string, secret string) (*Claims, error) {
	c, span := otel.Tracer.Start(c, "auth VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "auth VerifyToken").
		Str(constants.KEY_PROCESS, "parsing claims").
		Logger()

	logger.Trace().Msg("parsing claims")
	claims := &Claims{}
	jwtToken, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithAudience(constants.AUDIENCE_USER),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.APP_STOREFRONT),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", inErrors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if !jwtToken.Valid {
		err = fmt.Errorf("failed validating token with error=%w", inErrors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Str(constants.KEY_USER_ID, claims.Subject).Msg("parsed claims")

	return claims, nil
}

type sessionKey struct{}

func AttachSession(c context.Context, session backend.Session) context.Context {
	return context.WithValue(c, sessionKey{}, session)
}

func SessionFromContext(c context.Context) (backend.Session, bool) {
	session, ok := c.Value(sessionKey{}).(backend.Session)
	return session, ok
}
