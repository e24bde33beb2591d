package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carry the caller and the one account they act on.
// Every dialer operation is scoped by AccountID taken from here, never from the request body.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id"`
	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID    string
	AccountID string
	Role      string
}
