package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/backend"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
)

const codeUniqueViolation = "23505"

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
}

func (q *Queries) FindUserByEmail(c context.Context, email string) (User, error) {
	c, span := otel.Tracer.Start(c, "Queries FindUserByEmail")
	defer span.End()

	row, err := q.tables.SelectOne(c, backend.Query{
		Table:   TableUsers,
		Filters: []backend.Filter{backend.Eq("email", strings.ToLower(strings.TrimSpace(email)))},
	})
	if err != nil {
		otel.RecordError(err, span)
		return User{}, err
	}
	user, err := userFromRow(row)
	if err != nil {
		otel.RecordError(err, span)
		return User{}, err
	}
	return user, nil
}

type InsertUserParams struct {
	Email    string
	Password string
}

// InsertUser stores a new account. Password must already be hashed. An email
// that is taken returns ErrUserAlreadyExists.
func (q *Queries) InsertUser(c context.Context, p InsertUserParams) (User, error) {
	c, span := otel.Tracer.Start(c, "Queries InsertUser")
	defer span.End()

	row, err := q.tables.Insert(c, TableUsers, backend.Row{
		"email":          strings.ToLower(strings.TrimSpace(p.Email)),
		"password":       p.Password,
		"email_verified": false,
	})
	var remote *backend.RemoteError
	if errors.As(err, &remote) && remote.Code == codeUniqueViolation {
		err = fmt.Errorf("failed inserting user with error=%w", inErrors.ErrUserAlreadyExists)
	}
	if err != nil {
		otel.RecordError(err, span)
		return User{}, err
	}
	user, err := userFromRow(row)
	if err != nil {
		otel.RecordError(err, span)
		return User{}, err
	}
	return user, nil
}

func userFromRow(row backend.Row) (User, error) {
	id, err := toUUID(row["id"])
	if err != nil {
		return User{}, fmt.Errorf("failed mapping user id with error=%w", err)
	}
	return User{
		ID:            id,
		Email:         toString(row["email"]),
		Password:      toString(row["password"]),
		EmailVerified: toBool(row["email_verified"]),
	}, nil
}
