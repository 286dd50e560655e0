package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Login is the sign in form. The email is normalized while decoding.
type Login struct {
	Email    string `validate:"required,email,max=255" json:"email"`
	Password Secret `validate:"required,max=72"        json:"password"`
}

func (l *Login) UnmarshalJSON(data []byte) error {
	type form Login
	f := form{}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = Login(f)
	l.Email = NormalizeEmail(l.Email)
	return nil
}

func (l Login) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", MaskEmail(l.Email))
}
