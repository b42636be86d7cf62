package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a JWT token string and returns its claims.
// The abstraction enables testing with mock implementations.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// JWKSConfig contains configuration for the JWKS-backed validator.
type JWKSConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// Set to false for development mode (parses tokens without verification).
	EnableVerification bool
	// JWKSURL is the auth provider's JWKS endpoint.
	JWKSURL string
	// Issuer, when non-empty, must match the token's iss claim.
	Issuer string
}

// JWKSValidator validates JWT tokens against the auth provider's published
// JSON Web Key Set.
type JWKSValidator struct {
	keys   keyfunc.Keyfunc
	config *JWKSConfig
}

// NewJWKSValidator creates a validator, fetching the key set up front when
// verification is enabled.
func NewJWKSValidator(config *JWKSConfig) (*JWKSValidator, error) {
	v := &JWKSValidator{config: config}

	if !config.EnableVerification {
		return v, nil
	}

	keys, err := keyfunc.NewDefaultCtx(context.Background(), []string{config.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", config.JWKSURL, err)
	}
	v.keys = keys

	return v, nil
}

// ValidateToken validates a JWT token and returns the claims. If verification
// is disabled, the token is parsed without signature validation.
func (v *JWKSValidator) ValidateToken(tokenString string) (*Claims, error) {
	if !v.config.EnableVerification {
		return v.parseUnverifiedToken(tokenString)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.keys.KeyfuncCtx(context.Background())(token)
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
	}

	return claims, nil
}

// parseUnverifiedToken parses a JWT without verifying the signature.
// Used in development mode when EnableVerification is false.
func (v *JWKSValidator) parseUnverifiedToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// Ensure JWKSValidator implements TokenValidator at compile time.
var _ TokenValidator = (*JWKSValidator)(nil)
