// Package auth mints and checks the admin access tokens that guard issuance
// and other administrative calls.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/classmint/internal/common"
)

const issuer = "classmint"

// Claims are the registered JWT claims plus the issuer id recorded as
// issued_by on every token the admin creates.
type Claims struct {
	jwt.RegisteredClaims
	IssuerID string `json:"iid"`
}

// GenerateToken returns an HS256 admin token for issuerID valid for validity.
func GenerateToken(issuerID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   issuerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		IssuerID: issuerID,
	})
	return token.SignedString(secretKey)
}

// GetIssuerIDFromToken validates tokenString and returns its issuer id.
// Expired tokens yield common.ErrAccessTokenExpired; anything else that
// fails validation yields common.ErrInvalidAccessToken.
func GetIssuerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrAccessTokenExpired
		}
		return "", common.ErrInvalidAccessToken
	}
	if !token.Valid || claims.IssuerID == "" {
		return "", common.ErrInvalidAccessToken
	}

	return claims.IssuerID, nil
}
