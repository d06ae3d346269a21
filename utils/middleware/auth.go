package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "eduhub_session"

var (
	errNoCredentials = errors.New("no credentials")
	errInactiveUser  = errors.New("user is inactive")
)

// AuthMiddleware resolves the caller's session and enforces role gates
type AuthMiddleware struct {
	sessions *auth.SessionManager
	db       *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessions *auth.SessionManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		db:       db,
	}
}

// ExtractToken reads the session token from the cookie or a Bearer header
func ExtractToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// authenticate resolves the session and loads the user row.
// The role is read from the row so promotions apply on the next request.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*model.User, *auth.Session, error) {
	token := ExtractToken(c)
	if token == "" {
		return nil, nil, errNoCredentials
	}

	sess, err := m.sessions.Resolve(c.UserContext(), token)
	if err != nil {
		return nil, nil, err
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, sess.UserID).Error; err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, errInactiveUser
	}
	return &user, sess, nil
}

func setLocals(c *fiber.Ctx, user *model.User, sess *auth.Session) {
	c.Locals("user_id", user.ID)
	c.Locals("user_role", user.Role)
	c.Locals("user", user)
	c.Locals("session_id", sess.ID)
}

func (m *AuthMiddleware) rejectUnauthenticated(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInactiveUser):
		return response.Forbidden(c, "Account is deactivated")
	case errors.Is(err, errNoCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, gorm.ErrRecordNotFound):
		return response.Unauthorized(c, "Authentication required")
	default:
		return fmt.Errorf("resolve session: %w", err)
	}
}

// Required is middleware that requires a live session
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, sess, err := m.authenticate(c)
		if err != nil {
			return m.rejectUnauthenticated(c, err)
		}
		setLocals(c, user, sess)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a session
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, sess, err := m.authenticate(c); err == nil {
			setLocals(c, user, sess)
		}
		return c.Next()
	}
}

// HasRole reports whether role passes a gate for the allowed roles.
// Admin passes every gate.
func HasRole(role model.Role, allowed ...model.Role) bool {
	if role == model.RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRole is middleware that authenticates and requires one of roles
func (m *AuthMiddleware) RequireRole(message string, roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, sess, err := m.authenticate(c)
		if err != nil {
			return m.rejectUnauthenticated(c, err)
		}
		if !HasRole(user.Role, roles...) {
			return response.Forbidden(c, message)
		}
		setLocals(c, user, sess)
		return c.Next()
	}
}

// RequireTeacher admits teachers and admins
func (m *AuthMiddleware) RequireTeacher() fiber.Handler {
	return m.RequireRole("Teacher or admin access required", model.RoleTeacher)
}

// RequireStudent admits students and admins
func (m *AuthMiddleware) RequireStudent() fiber.Handler {
	return m.RequireRole("Student access required", model.RoleStudent)
}

// RequireAdmin admits admins only
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole("Admin access required", model.RoleAdmin)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (model.Role, bool) {
	role := c.Locals("user_role")
	if role == nil {
		return "", false
	}
	r, ok := role.(model.Role)
	return r, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetSessionID extracts the session id from context
func GetSessionID(c *fiber.Ctx) (string, bool) {
	id := c.Locals("session_id")
	if id == nil {
		return "", false
	}
	s, ok := id.(string)
	return s, ok
}
