package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/request"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type Service struct {
	queries *repository.Queries
	cache   *redis.Client
	secret  string
	ttl     time.Duration
	cost    int
}

func NewService(queries *repository.Queries, cache *redis.Client, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{queries: queries, cache: cache, secret: secret, ttl: ttl, cost: bcrypt.DefaultCost}
}

func (s *Service) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "AuthService Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "AuthService Login").
		Object(constants.KEY_REQUEST, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding user by email").Logger()
	logger.Info().Msg("finding user by email")
	user, err := s.queries.FindUserByEmail(c, param.Email)
	if errors.Is(err, inErrors.ErrNotFound) {
		err = fmt.Errorf("failed finding user with error=%w", inErrors.ErrInvalidCredentials)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding user by email with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, user.ID.String()).Logger()
	logger.Info().Msg("found user by email")

	logger = logger.With().Str(constants.KEY_PROCESS, "comparing password").Logger()
	logger.Info().Msg("comparing password")
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password))
	if err != nil {
		err = fmt.Errorf("failed comparing password with error=%w", inErrors.ErrInvalidCredentials)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("compared password")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding profile").Logger()
	logger.Info().Msg("finding profile")
	profile, err := s.queries.FindProfileAttributes(c, user.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without profile attributes")
		profile = map[string]string{}
	}
	logger.Info().Msg("found profile")

	session := backend.Session{
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Profile:       profile,
	}
	login, err := s.signIn(logger.WithContext(c), session)
	if err != nil {
		otel.RecordError(err, span)
		return response.Login{}, err
	}
	return login, nil
}

// Register creates an account with its profile and signs it in. The profile
// is optional for later sign ins, failing to store it is only logged.
func (s *Service) Register(c context.Context, param request.Register) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "AuthService Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "AuthService Register").
		Object(constants.KEY_REQUEST, param).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding user by email").Logger()
	logger.Info().Msg("finding user by email")
	_, err := s.queries.FindUserByEmail(c, param.Email)
	if err == nil {
		err = fmt.Errorf("failed registering user with error=%w", inErrors.ErrUserAlreadyExists)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	if !errors.Is(err, inErrors.ErrNotFound) {
		err = fmt.Errorf("failed finding user by email with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("email is free")

	logger = logger.With().Str(constants.KEY_PROCESS, "hashing password").Logger()
	logger.Info().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), s.cost)
	if err != nil {
		err = fmt.Errorf("failed hashing password with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("hashed password")

	logger = logger.With().Str(constants.KEY_PROCESS, "inserting user").Logger()
	logger.Info().Msg("inserting user")
	user, err := s.queries.InsertUser(c, repository.InsertUserParams{Email: param.Email, Password: string(hashed)})
	if err != nil {
		err = fmt.Errorf("failed inserting user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, user.ID.String()).Logger()
	logger.Info().Msg("inserted user")

	profile := map[string]string{"first_name": param.FirstName, "last_name": param.LastName}
	if param.Phone != "" {
		profile["phone"] = param.Phone
	}
	logger = logger.With().Str(constants.KEY_PROCESS, "inserting profile").Logger()
	logger.Info().Msg("inserting profile")
	err = s.queries.InsertProfile(c, repository.InsertProfileParams{
		UserID:    user.ID,
		FirstName: param.FirstName,
		LastName:  param.LastName,
		Phone:     param.Phone,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without stored profile")
	} else {
		logger.Info().Msg("inserted profile")
	}

	login, err := s.signIn(logger.WithContext(c), backend.Session{
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Profile:       profile,
	})
	if err != nil {
		otel.RecordError(err, span)
		return response.Login{}, err
	}
	return login, nil
}

// signIn issues the session token and announces the sign in to every
// instance.
func (s *Service) signIn(c context.Context, session backend.Session) (response.Login, error) {
	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "AuthService signIn").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "issuing token").Logger()
	logger.Info().Msg("issuing token")
	now := time.Now()
	token, expiresAt, err := IssueToken(session, s.secret, s.ttl, now)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("issued token")

	logger = logger.With().Str(constants.KEY_PROCESS, "publishing sign in").Logger()
	err = publishAuthEvent(c, s.cache, backend.AuthEvent{Type: backend.AuthSignedIn, UserID: session.UserID, At: now})
	if err != nil {
		logger.Warn().Err(err).Msg(err.Error())
	}

	return response.Login{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

func (s *Service) Logout(c context.Context, session backend.Session) error {
	c, span := otel.Tracer.Start(c, "AuthService Logout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "AuthService Logout").
		Str(constants.KEY_USER_ID, session.UserID.String()).
		Logger()

	logger.Info().Msg("publishing sign out")
	err := publishAuthEvent(c, s.cache, backend.AuthEvent{Type: backend.AuthSignedOut, UserID: session.UserID, At: time.Now()})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("published sign out")
	return nil
}
