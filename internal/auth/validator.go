package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates JWT tokens
type TokenValidator interface {
	Validate(tokenString string, kid string) (*CustomClaims, error)
}

// signedValidator verifies tokens of one issuer with one signing family.
type signedValidator struct {
	issuer    string
	clockSkew time.Duration
	methods   []string
	key       func(kid string) (interface{}, bool)
}

// NewHS256Validator validates HMAC tokens against keys loaded for issuer.
func NewHS256Validator(keyStore *KeyStore, issuer string, clockSkew time.Duration) TokenValidator {
	return &signedValidator{
		issuer:    issuer,
		clockSkew: clockSkew,
		methods:   []string{jwt.SigningMethodHS256.Alg()},
		key: func(kid string) (interface{}, bool) {
			return keyStore.GetHS256Key(issuer, kid)
		},
	}
}

// NewRS256Validator validates RSA tokens against public keys loaded for issuer.
func NewRS256Validator(keyStore *KeyStore, issuer string, clockSkew time.Duration) TokenValidator {
	return &signedValidator{
		issuer:    issuer,
		clockSkew: clockSkew,
		methods:   []string{jwt.SigningMethodRS256.Alg()},
		key: func(kid string) (interface{}, bool) {
			return keyStore.GetRS256Key(issuer, kid)
		},
	}
}

func (v *signedValidator) Validate(tokenString string, kid string) (*CustomClaims, error) {
	key, ok := v.key(kid)
	if !ok {
		return nil, NewAuthError(AuthFailureInvalidSignature, fmt.Sprintf("key not found for issuer %s and kid %s", v.issuer, kid), nil)
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods(v.methods),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, NewAuthError(AuthFailureTokenExpired, "token expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, NewAuthError(AuthFailureInvalidSignature, "invalid signature", err)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, NewAuthError(AuthFailureInvalidIssuer, "issuer mismatch", err)
		case errors.Is(err, jwt.ErrTokenInvalidClaims):
			return nil, NewAuthError(AuthFailureInvalidClaims, "invalid claims", err)
		default:
			return nil, NewAuthError(AuthFailureUnknown, "failed to parse token", err)
		}
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, NewAuthError(AuthFailureUnknown, fmt.Sprintf("invalid token: valid=%v", token.Valid), nil)
	}
	return claims, nil
}
