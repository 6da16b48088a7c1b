package domain

import "time"

// TokenTypeBearer is the only token type this service issues.
const TokenTypeBearer = "Bearer"

// Claims are the fields embedded in a signed token.
type Claims struct {
	ID        string    `json:"jti"`
	Subject   string    `json:"sub"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Token is an issued, encoded bearer token together with its claims.
// It is never persisted.
type Token struct {
	Encoded string
	Claims  Claims
}

// AuthResult is returned once per successful signup or login.
type AuthResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// NewAuthResult builds the response for cred around an issued token.
// ExpiresIn is measured from the token's issued-at time, in whole seconds.
func NewAuthResult(tok *Token, cred *Credential) *AuthResult {
	return &AuthResult{
		Token:     tok.Encoded,
		TokenType: TokenTypeBearer,
		ExpiresIn: int64(tok.Claims.ExpiresAt.Sub(tok.Claims.IssuedAt) / time.Second),
		Username:  cred.Username,
		Email:     cred.Email,
		Role:      cred.Role,
	}
}
