package auth

import (
	"errors"
	"fmt"

	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils/middleware"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate request
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password, services.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			// Record failed attempt even if user not found
			if h.bruteForceProtection != nil {
				h.bruteForceProtection.RecordFailedAttempt(c)
			}
			return response.Unauthorized(c, "Invalid credentials")
		case errors.Is(err, services.ErrUserInactive):
			return response.Forbidden(c, "Account is deactivated")
		}
		return fmt.Errorf("authenticate: %w", err)
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c)
	}

	res, err := h.startSession(c, user)
	if err != nil {
		return fmt.Errorf("start session for user %d: %w", user.ID, err)
	}

	return response.SuccessWithMessage(c, "Login successful", res)
}

// Logout handles POST /api/logout. It succeeds without a session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := middleware.ExtractToken(c); token != "" {
		if sess, err := h.sessions.Resolve(c.UserContext(), token); err == nil {
			if err := h.sessions.Destroy(c.UserContext(), sess.ID); err != nil {
				return fmt.Errorf("destroy session: %w", err)
			}
		}
	}

	c.ClearCookie(middleware.SessionCookieName)
	return response.SuccessWithMessage(c, "Logout successful", nil)
}
