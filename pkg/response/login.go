package response

import (
	"time"

	"github.com/Alturino/mallofhookah/internal/backend"
)

type Login struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Session   backend.Session `json:"session"`
}
