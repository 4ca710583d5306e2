package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrExpiredToken = errors.New("access token has expired")
	ErrNoSession    = errors.New("no active session")
)

// Principal es la identidad autenticada que posee las tareas.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
}

// Session une al principal con el token emitido por el proveedor de identidad.
type Session struct {
	Principal   Principal `json:"user"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired indica si la sesión ha caducado en now. Sin ExpiresAt no caduca.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// PrincipalChange se emite al entrar o salir un principal. nil significa "ninguno".
type PrincipalChange struct {
	Previous *Principal
	Current  *Principal
}

// TokenVerifier valida un access token y devuelve la sesión que representa.
type TokenVerifier interface {
	Verify(token string) (Session, error)
}
