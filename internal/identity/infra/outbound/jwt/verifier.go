package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
)

// Claims son los campos que emite el proveedor de identidad: sub es el id del principal.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

// HMACVerifier valida access tokens firmados con HS256.
type HMACVerifier struct {
	secret []byte
	issuer string
}

var _ identityDomain.TokenVerifier = (*HMACVerifier)(nil)

// NewHMACVerifier crea el verificador. issuer vacío no se comprueba.
func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *HMACVerifier) Verify(token string) (identityDomain.Session, error) {
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return identityDomain.Session{}, identityDomain.ErrExpiredToken
		}
		return identityDomain.Session{}, fmt.Errorf("%w: %v", identityDomain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return identityDomain.Session{}, identityDomain.ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return identityDomain.Session{}, fmt.Errorf("%w: subject is not a principal id", identityDomain.ErrInvalidToken)
	}

	session := identityDomain.Session{
		Principal:   identityDomain.Principal{ID: id, Email: claims.Email},
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}

// Sign emite un token para el principal. Lo usan los tests y las herramientas locales.
func (v *HMACVerifier) Sign(p identityDomain.Principal, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email: p.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   p.ID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(v.secret)
}
