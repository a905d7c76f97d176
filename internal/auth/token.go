// Package auth reads what it can from the opaque bearer credential.
// Nothing here verifies a signature: the API is the only judge of a
// token, the client just wants the user id when one is encoded.
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// claimOrder is the preference order for the user id claim.
var claimOrder = []string{"sub", "userId", "id", "_id"}

// UserIDFromToken returns the user id encoded in a JWT payload, or ""
// when the token is not a JWT or carries none of the known claims.
func UserIDFromToken(token string) string {
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, k := range claimOrder {
		v, ok := claims[k]
		if !ok || v == nil {
			continue
		}
		s := claimString(v)
		if s != "" {
			return s
		}
	}
	return ""
}

func claimString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return fmt.Sprint(x)
	}
}
