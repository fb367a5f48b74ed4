package access

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/utils"
)

const (
	AccessTokenTTL = 365 * 24 * time.Hour
	tokenIssuer    = "mxvalidator"
)

// IssueAccessToken signs the cookie value proving email was verified.
func (s *accessService) IssueAccessToken(email string) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}

	now := utils.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// ParseAccessToken returns the email carried by a valid, unexpired token.
func (s *accessService) ParseAccessToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", mxerrors.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", mxerrors.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", mxerrors.ErrInvalidToken
	}
	return claims.Subject, nil
}
