package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const defaultKid = "v1"

// KeyResolver picks the validator for a token from its unverified issuer
// claim, then checks the audience of the verified claims.
type KeyResolver struct {
	validators       map[string]TokenValidator
	allowedIssuers   map[string]bool
	allowedAudiences []string
	parser           *jwt.Parser
}

func NewKeyResolver(allowedIssuers []string, allowedAudiences []string) *KeyResolver {
	issuers := make(map[string]bool, len(allowedIssuers))
	for _, issuer := range allowedIssuers {
		issuers[issuer] = true
	}

	return &KeyResolver{
		validators:       make(map[string]TokenValidator),
		allowedIssuers:   issuers,
		allowedAudiences: allowedAudiences,
		parser:           jwt.NewParser(),
	}
}

func (kr *KeyResolver) RegisterValidator(issuer string, validator TokenValidator) {
	kr.validators[issuer] = validator
}

// Resolve validates tokenString and returns its claims.
func (kr *KeyResolver) Resolve(ctx context.Context, tokenString string) (*CustomClaims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issuer, kid, err := kr.peek(tokenString)
	if err != nil {
		return nil, NewAuthError(AuthFailureUnknown, "malformed token", err)
	}

	if !kr.allowedIssuers[issuer] {
		return nil, NewAuthError(AuthFailureInvalidIssuer, fmt.Sprintf("issuer not allowed: %s", issuer), nil)
	}
	validator, ok := kr.validators[issuer]
	if !ok {
		return nil, NewAuthError(AuthFailureInvalidIssuer, fmt.Sprintf("no validator found for issuer: %s", issuer), nil)
	}

	claims, err := validator.Validate(tokenString, kid)
	if err != nil {
		return nil, err
	}

	if !kr.validAudience(claims.Audience) {
		return nil, NewAuthError(AuthFailureInvalidAudience, fmt.Sprintf("invalid audience: %v", claims.Audience), nil)
	}
	return claims, nil
}

// peek reads iss and kid without verifying the signature.
func (kr *KeyResolver) peek(tokenString string) (issuer, kid string, err error) {
	claims := &jwt.RegisteredClaims{}
	token, _, err := kr.parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return "", "", err
	}

	kid, _ = token.Header["kid"].(string)
	if kid == "" {
		kid = defaultKid
	}
	return claims.Issuer, kid, nil
}

func (kr *KeyResolver) validAudience(audiences []string) bool {
	for _, aud := range audiences {
		if slices.Contains(kr.allowedAudiences, aud) {
			return true
		}
	}
	return false
}
