package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-dashboard/internal/auth"
	"github.com/i474232898/sensor-dashboard/internal/store"
)

// TokenCookie holds the access token.
const TokenCookie = "access_token"

const loginKey = "auth.login"

type credentials struct {
	Login    string `json:"login" validate:"required,min=3,max=128"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

func registerAuthRoutes(api fiber.Router, d Deps) {
	api.Post("/register", func(c *fiber.Ctx) error {
		var req credentials
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		req.Login = strings.TrimSpace(req.Login)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sess, err := sessionFrom(c)
		if err != nil {
			return toHTTPError(err)
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to register user")
		}

		if _, err := sess.CreateUser(c.UserContext(), req.Login, hash); err != nil {
			if errors.Is(err, store.ErrDuplicateUser) {
				return fiber.NewError(fiber.StatusBadRequest, "user already exists")
			}
			d.Log.Errorf("failed to create user: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to register user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"login": req.Login})
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req credentials
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		req.Login = strings.TrimSpace(req.Login)
		if req.Login == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "login and password are required")
		}

		sess, err := sessionFrom(c)
		if err != nil {
			return toHTTPError(err)
		}

		user, err := sess.FindUser(c.UserContext(), req.Login)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			d.Log.Errorf("failed to look up user: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to log in")
		}
		if err != nil || auth.CheckPassword(user.Password, req.Password) != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid login or password")
		}

		token, exp, err := d.Auth.Issue(user.Login)
		if err != nil {
			d.Log.Errorf("failed to issue token: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to log in")
		}

		c.Cookie(&fiber.Cookie{
			Name:     TokenCookie,
			Value:    token,
			Path:     "/",
			Expires:  exp,
			HTTPOnly: true,
			Secure:   d.SecureCookies,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(fiber.Map{"login": user.Login, "expires_at": exp.UTC()})
	})

	api.Head("/logout", func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     TokenCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   d.SecureCookies,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.SendStatus(fiber.StatusOK)
	})
}

// requireAuth accepts the token from the cookie or an Authorization: Bearer header.
func requireAuth(m *auth.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(TokenCookie)
		if token == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		claims, err := m.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(loginKey, claims.Login)
		return c.Next()
	}
}
