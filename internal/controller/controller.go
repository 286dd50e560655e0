package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Alturino/mallofhookah/internal/auth"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func userIDFromContext(c context.Context) (uuid.UUID, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok || session.UserID == uuid.Nil {
		return uuid.Nil, inErrors.ErrUnauthenticated
	}
	return session.UserID, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed parsing %s with error=%w", key, inErrors.ErrNotFound)
	}
	return id, nil
}

func decode(c context.Context, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("failed decoding request body with error=%w", err)
	}
	return validate.StructCtx(c, v)
}
