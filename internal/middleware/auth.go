package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates the operator session token. Token issuance lives in the
// admin dashboard's auth service; the relay only verifies.
func Auth(jwtSecret string) fiber.Handler {
	secret := []byte(jwtSecret)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(401).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		operatorID, userName, err := ValidateToken(tokenString, secret)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals("operator_id", operatorID)
		c.Locals("user_name", userName)
		return c.Next()
	}
}

// ValidateToken parses an operator JWT and returns (subject, username). Also
// used by the websocket upgrade, where the token arrives as a query param.
func ValidateToken(tokenString string, secret []byte) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}

	operatorID, _ := claims["sub"].(string)
	userName, _ := claims["username"].(string)
	if operatorID == "" {
		return "", "", fmt.Errorf("missing subject")
	}
	return operatorID, userName, nil
}

// InternalToken guards the cross-process broadcast relay endpoint with a
// shared secret header.
func InternalToken(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("x-internal-token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(403).JSON(fiber.Map{"error": "invalid internal token"})
		}
		return c.Next()
	}
}

// AdminKey guards the stats/channel-admin endpoints.
func AdminKey(expectedKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Admin-Key")
		if key == "" || key != expectedKey {
			return c.Status(403).JSON(fiber.Map{"error": "invalid admin key"})
		}
		return c.Next()
	}
}
