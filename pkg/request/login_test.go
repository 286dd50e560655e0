package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginDecodeNormalizesEmail(t *testing.T) {
	login := Login{}

	err := json.Unmarshal([]byte(`{"email":"  Kunde@Example.DE ","password":"geheim"}`), &login)

	require.NoError(t, err)
	assert.Equal(t, "kunde@example.de", login.Email)
	assert.Equal(t, Secret("geheim"), login.Password)
}

func TestLoginMasksPassword(t *testing.T) {
	login := Login{Email: "kunde@example.de", Password: "geheim"}

	actual, err := json.Marshal(login)

	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"kunde@example.de","password":"***"}`, string(actual))
	assert.Equal(t, "***", fmt.Sprint(login.Password))
	assert.EqualValues(t, "geheim", login.Password)
}

func TestLoginZerologObjectMasks(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Info().Object("login", Login{Email: "kunde@example.de", Password: "geheim"}).Msg("")

	assert.Contains(t, buf.String(), `"email":"k***@example.de"`)
	assert.NotContains(t, buf.String(), "geheim")
	assert.NotContains(t, buf.String(), "kunde@")
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{email: "kunde@example.de", expected: "k***@example.de"},
		{email: "ömer@example.de", expected: "ö***@example.de"},
		{email: "@example.de", expected: "***"},
		{email: "kein-at", expected: "***"},
		{email: "", expected: "***"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.email))
		})
	}
}

func validRegister() Register {
	return Register{
		FirstName:       "Mia",
		LastName:        "Schulz",
		Email:           "mia@example.de",
		Password:        "geheim123",
		ConfirmPassword: "geheim123",
		AcceptTerms:     true,
	}
}

func TestRegisterValidation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		modify  func(r *Register)
		invalid string
	}{
		{name: "valid", modify: func(r *Register) {}},
		{name: "password shorter than eight characters", modify: func(r *Register) {
			r.Password, r.ConfirmPassword = "kurz", "kurz"
		}, invalid: "Password"},
		{name: "passwords differ", modify: func(r *Register) { r.ConfirmPassword = "geheim124" }, invalid: "ConfirmPassword"},
		{name: "terms not accepted", modify: func(r *Register) { r.AcceptTerms = false }, invalid: "AcceptTerms"},
		{name: "invalid email", modify: func(r *Register) { r.Email = "mia" }, invalid: "Email"},
		{name: "missing first name", modify: func(r *Register) { r.FirstName = "" }, invalid: "FirstName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegister()
			tt.modify(&r)

			err := validate.Struct(r)

			if tt.invalid == "" {
				assert.NoError(t, err)
				return
			}
			var validationErrs validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			assert.Equal(t, tt.invalid, validationErrs[0].Field())
		})
	}
}

func TestRegisterDecodeTrims(t *testing.T) {
	r := Register{}

	err := json.Unmarshal([]byte(`{"firstName":" Mia ","lastName":"Schulz ","email":" MIA@example.de","phone":" 0421 1 ","password":"geheim123","confirmPassword":"geheim123","acceptTerms":true}`), &r)

	require.NoError(t, err)
	assert.Equal(t, "Mia", r.FirstName)
	assert.Equal(t, "Schulz", r.LastName)
	assert.Equal(t, "mia@example.de", r.Email)
	assert.Equal(t, "0421 1", r.Phone)

	encoded, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "geheim123")
}
