package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDeriveCredential_IsStableBasicPair(t *testing.T) {
	t.Parallel()

	cred := DeriveCredential("alice", "correct")
	require.Equal(t, "YWxpY2U6Y29ycmVjdA==", cred)
	require.Equal(t, cred, DeriveCredential("alice", "correct"))
	require.NotEqual(t, cred, DeriveCredential("alice", "wrong"))
	require.Equal(t, "Basic YWxpY2U6Y29ycmVjdA==", HeaderValue(cred))

	username, ok := UsernameFromCredential(cred)
	require.True(t, ok)
	require.Equal(t, "alice", username)
}

func TestUsernameFromCredential_RejectsForeignValues(t *testing.T) {
	t.Parallel()

	for _, cred := range []string{"", "not base64!", "bm9jb2xvbg==", "OnNlY3JldA=="} {
		_, ok := UsernameFromCredential(cred)
		require.False(t, ok, cred)
	}
}

func TestRequestContext_Apply(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	RequestContext{}.Apply(req)
	require.Empty(t, req.Header.Get("Authorization"))

	rc := RequestContext{Username: "alice", Credential: DeriveCredential("alice", "correct")}
	rc.Apply(req)
	require.Equal(t, "Basic YWxpY2U6Y29ycmVjdA==", req.Header.Get("Authorization"))
}

func TestInspectToken(t *testing.T) {
	t.Parallel()

	exp := time.Unix(1_900_000_000, 0).UTC()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	info, ok := InspectToken(signed)
	require.True(t, ok)
	require.Equal(t, "42", info.Subject)
	require.NotNil(t, info.ExpiresAt)
	require.True(t, exp.Equal(*info.ExpiresAt))

	_, ok = InspectToken("dummy-jwt-token-1")
	require.False(t, ok)
	_, ok = InspectToken("")
	require.False(t, ok)
}

func TestRequireOperatorKey(t *testing.T) {
	t.Parallel()

	hashed, err := HashOperatorKey("barista-key", bcrypt.MinCost)
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/guarded", RequireOperatorKey(hashed), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Post("/open", RequireOperatorKey(""), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{name: "open route", path: "/open", want: http.StatusNoContent},
		{name: "missing key", path: "/guarded", want: http.StatusUnauthorized},
		{name: "valid key", path: "/guarded", key: "barista-key", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		if tt.key != "" {
			req.Header.Set(OperatorKeyHeader, tt.key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, resp.StatusCode, tt.name)
	}
}

func TestCompareOperatorKey_Mismatch(t *testing.T) {
	t.Parallel()

	hashed, err := HashOperatorKey("right", bcrypt.MinCost)
	require.NoError(t, err)
	require.Error(t, CompareOperatorKey(hashed, "wrong"))
	require.NoError(t, CompareOperatorKey(hashed, "right"))
}
