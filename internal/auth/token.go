package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UsernameFromToken extracts the warehouse username from an identity
// provider access token. The token is decoded without signature validation;
// the backend is the authority, the gateway only needs the account name
// before the "@".
func UsernameFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", err
	}

	uniqueName, _ := claims["unique_name"].(string)
	if uniqueName == "" {
		return "", errors.New("token has no unique_name claim")
	}

	username, _, _ := strings.Cut(uniqueName, "@")
	if username == "" {
		return "", errors.New("token unique_name is empty")
	}
	return username, nil
}
