// Package identity resolves the calling actor from a bearer token. Token
// issuance is the environment's concern; this core only verifies and reads
// the subject and role claims.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"slotbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds verification parameters for incoming tokens.
type Config struct {
	Secret string
	Issuer string
}

// ErrMissingToken is returned when the Authorization header is absent.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// Parse validates a JWT and returns the actor it identifies.
func Parse(token string, cfg Config) (models.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Actor{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return models.Actor{}, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if subject == "" || !models.ValidRole(role) {
		return models.Actor{}, ErrInvalidToken
	}

	return models.Actor{ID: subject, Role: role}, nil
}
