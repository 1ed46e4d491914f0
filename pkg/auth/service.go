package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Service validates bearer tokens issued by the external identity provider.
// The token's subject is the provider's stable user identifier; nestlog
// treats it as an opaque string and never sees credentials.
type Service struct {
	jwtSecret []byte
}

// NewService creates a new auth service.
func NewService(jwtSecret string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret)}
}

// ValidateToken validates a token and returns the external subject.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", errors.WithStack(err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}
