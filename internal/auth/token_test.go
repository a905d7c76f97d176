package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestUserIDFromToken_Sub(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": "507f1f77bcf86cd799439011", "userId": "other"})
	if got := UserIDFromToken(tok); got != "507f1f77bcf86cd799439011" {
		t.Fatalf("expected sub claim, got %q", got)
	}
}

func TestUserIDFromToken_FallbackClaims(t *testing.T) {
	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"userId", jwt.MapClaims{"userId": "u1"}, "u1"},
		{"id", jwt.MapClaims{"id": "u2"}, "u2"},
		{"_id", jwt.MapClaims{"_id": "u3"}, "u3"},
		{"numeric", jwt.MapClaims{"id": 42}, "42"},
		{"empty sub skipped", jwt.MapClaims{"sub": "", "_id": "u4"}, "u4"},
		{"none", jwt.MapClaims{"email": "a@b.c"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserIDFromToken(signed(t, tc.claims)); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUserIDFromToken_NotAJWT(t *testing.T) {
	for _, tok := range []string{"", "opaque-session-token", "a.b", "not.a.jwt"} {
		if got := UserIDFromToken(tok); got != "" {
			t.Errorf("UserIDFromToken(%q) = %q, want empty", tok, got)
		}
	}
}
