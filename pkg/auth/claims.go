package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims issued by the external auth provider. The
// subject is the opaque owning-user identifier used to scope every store
// operation.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the opaque user identifier from the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}
