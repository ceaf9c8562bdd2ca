// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"scoda_backend/internals/constants"
	helper "scoda_backend/internals/helpers"
)

const HeaderAPIKey = "X-API-KEY"

// APIKeyAuth lets machine clients in with X-API-KEY. Requests without the
// header fall through to AuthJWT. The service user becomes the actor of
// everything the client registers.
func APIKeyAuth(apiKey string, serviceUserID uuid.UUID) fiber.Handler {
	apiKey = strings.TrimSpace(apiKey)
	return keyauth.New(keyauth.Config{
		KeyLookup: "header:" + HeaderAPIKey,
		Next: func(c *fiber.Ctx) bool {
			return apiKey == "" || c.Get(HeaderAPIKey) == ""
		},
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			c.Locals(helper.LocUserID, serviceUserID.String())
			c.Locals(helper.LocRole, constants.RoleService)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("[WARN] rejected API key from %s", c.IP())
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - invalid API key")
		},
	})
}

// AuthJWT verifies an HS256 bearer token (or the access_token cookie) and
// stores user_id and userRole in Locals. Requests already authenticated by
// APIKeyAuth pass through.
func AuthJWT(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		panic("AuthJWT: secret is required")
	}

	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(helper.LocRole).(string); role == constants.RoleService {
			return c.Next()
		}

		raw, err := extractBearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - invalid token")
		}

		userID, err := extractUserID(claims)
		if err != nil || userID == uuid.Nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - invalid or missing user id")
		}
		c.Locals(helper.LocUserID, userID.String())
		c.Locals(helper.LocRole, extractRole(claims))
		return c.Next()
	}
}
