package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload stored inside a session JWT. The ID (jti) is
// what the gate tracks server-side, so logout can revoke a live token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses session tokens with an HS256 key owned by the
// process. The key comes from configuration, never from source.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
}

func NewTokenIssuer(key []byte, duration time.Duration) TokenIssuer {
	return TokenIssuer{key: key, duration: duration}
}

// Issue creates a signed JWT bound to a display name and returns the token
// together with its jti.
func (t TokenIssuer) Issue(username string) (string, string, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()

	claims := &SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "lan-chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Parse validates the signature and expiration of a token string.
func (t TokenIssuer) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
