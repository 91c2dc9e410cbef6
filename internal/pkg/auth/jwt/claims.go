package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of the identity tokens the development server issues.
type Payload struct {
	// StandardClaims carries expiry, issue time and issuer.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the account id the token belongs to.
	ID string `json:"id"`

	// Email is the address the account signed up with.
	Email string `json:"email"`
}
