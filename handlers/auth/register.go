package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	authutil "github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/middleware"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users                *services.UserService
	sessions             *authutil.SessionManager
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
	secureCookie         bool
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil
// when Redis is unavailable.
func NewAuthHandler(users *services.UserService, sessions *authutil.SessionManager, bruteForceProtection *middleware.BruteForceProtection, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		users:                users,
		sessions:             sessions,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
		secureCookie:         secureCookie,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
}

// SessionResponse is returned by login and registration
type SessionResponse struct {
	User      model.UserSummary `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Register handles POST /api/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	user, err := h.users.Register(c.UserContext(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: validation.SanitizeString(req.FirstName),
		LastName:  validation.SanitizeString(req.LastName),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return response.BadRequest(c, "Email is already registered")
		case errors.Is(err, authutil.ErrPasswordTooShort), errors.Is(err, authutil.ErrPasswordTooLong):
			return response.ValidationError(c, map[string]string{"password": err.Error()})
		}
		return fmt.Errorf("register %s: %w", req.Email, err)
	}

	res, err := h.startSession(c, user)
	if err != nil {
		return fmt.Errorf("start session for user %d: %w", user.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Response{
		Success: true,
		Message: "Registration successful",
		Data:    res,
	})
}

// startSession creates a session for user and sets the session cookie
func (h *AuthHandler) startSession(c *fiber.Ctx, user *model.User) (*SessionResponse, error) {
	token, sess, err := h.sessions.Create(c.UserContext(), user.ID, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return nil, err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return &SessionResponse{
		User:      user.ToSummary(),
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}
