// Package auth extracts the user identity from the Supabase access token.
// The token is verified by the remote store on every request; here we only
// need the subject claim to scope queries, so the parse is unverified.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoUser means the token carried no usable subject claim.
var ErrNoUser = errors.New("no user identity in token")

// UserID returns the sub claim of the given JWT.
func UserID(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrNoUser
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoUser
	}
	return sub, nil
}

// GuardSuffix returns the token fragment used in sync guard keys: the last
// n characters, or the whole token when shorter.
func GuardSuffix(tokenStr string, n int) string {
	if len(tokenStr) <= n {
		return tokenStr
	}
	return tokenStr[len(tokenStr)-n:]
}
