package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/evalarena/evalarena-go-api/internal/auth"
	"github.com/evalarena/evalarena-go-api/internal/utils"
)

// minTokenLength filters obviously malformed tokens before verification.
const minTokenLength = 16

// DefaultVerifyTimeout bounds how long a request waits on token
// verification before continuing anonymously.
const DefaultVerifyTimeout = 3 * time.Second

const identityLocal = "user_id"

// OptionalIdentity resolves the bearer token into an identity when
// possible and continues anonymously otherwise. Verification is raced
// against a fixed timeout so a slow verifier never blocks the request.
func OptionalIdentity(verifier auth.Verifier, timeout time.Duration, logger zerolog.Logger) fiber.Handler {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	log := logger.With().Str("component", "identity_middleware").Logger()

	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if len(token) < minTokenLength {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		type outcome struct {
			identity auth.Identity
			err      error
		}
		resultCh := make(chan outcome, 1)
		go func() {
			identity, err := verifier.Verify(ctx, token)
			resultCh <- outcome{identity: identity, err: err}
		}()

		select {
		case result := <-resultCh:
			if result.err != nil {
				log.Debug().Err(result.err).Msg("token verification failed, continuing anonymously")
			} else {
				c.Locals(identityLocal, result.identity.UserID)
			}
		case <-ctx.Done():
			log.Warn().Dur("timeout", timeout).Msg("token verification timed out, continuing anonymously")
		}

		return c.Next()
	}
}

// RequireIdentity rejects requests that did not resolve an identity.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IdentityFromCtx(c) == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// IdentityFromCtx returns the resolved user identifier, or nil for
// anonymous callers.
func IdentityFromCtx(c *fiber.Ctx) *string {
	value := c.Locals(identityLocal)
	if value == nil {
		return nil
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

func bearerToken(c *fiber.Ctx) string {
	authorization := c.Get(fiber.HeaderAuthorization)
	if authorization == "" {
		return ""
	}

	const bearer = "bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return ""
	}

	return strings.TrimSpace(authorization[len(bearer):])
}
