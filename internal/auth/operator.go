package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/beanbrew/queueboard/pkg/util"
)

// OperatorKeyHeader carries the dashboard operator key.
const OperatorKeyHeader = "X-Operator-Key"

// HashOperatorKey hashes a plaintext operator key with the given cost.
func HashOperatorKey(key string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareOperatorKey verifies a key against its hashed value.
func CompareOperatorKey(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// RequireOperatorKey guards dashboard routes that mutate orders. An empty hash
// leaves the routes open.
func RequireOperatorKey(hashed string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hashed == "" {
			return c.Next()
		}
		key := c.Get(OperatorKeyHeader)
		if key == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing operator key")
		}
		if err := CompareOperatorKey(hashed, key); err != nil {
			return apperrors.NewDomainError(apperrors.CodeForbidden, "invalid operator key", http.StatusForbidden, nil)
		}
		return c.Next()
	}
}
