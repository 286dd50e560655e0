package request

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// Register is the sign up form. Passwords follow the storefront rules of at
// least eight characters, typed twice, and bcrypt's 72 byte limit.
type Register struct {
	FirstName       string `validate:"required,max=100"          json:"firstName"`
	LastName        string `validate:"required,max=100"          json:"lastName"`
	Email           string `validate:"required,email,max=255"    json:"email"`
	Phone           string `validate:"omitempty,max=50"          json:"phone"`
	Password        Secret `validate:"required,min=8,max=72"     json:"password"`
	ConfirmPassword Secret `validate:"required,eqfield=Password" json:"confirmPassword"`
	AcceptTerms     bool   `validate:"required"                  json:"acceptTerms"`
}

func (r *Register) UnmarshalJSON(data []byte) error {
	type form Register
	f := form{}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Register(f)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	return nil
}

func (r Register) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", MaskEmail(r.Email)).
		Str("firstName", r.FirstName).
		Bool("acceptTerms", r.AcceptTerms)
}
