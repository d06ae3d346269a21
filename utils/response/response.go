package response

import (
	"github.com/gofiber/fiber/v2"
)

// Code is the machine-readable error code the SPA switches on
type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PaginationMeta describes one page of an admin listing
type PaginationMeta struct {
	CurrentPage int   `json:"currentPage"`
	PerPage     int   `json:"perPage"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
}

type PaginatedResponse struct {
	Success    bool           `json:"success"`
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// defaults for helpers called with an empty message
var defaultMessages = map[Code]string{
	CodeUnauthorized:    "Authentication required",
	CodeForbidden:       "Access forbidden",
	CodeNotFound:        "Resource not found",
	CodeTooManyRequests: "Too many requests",
	CodePayloadTooLarge: "Request body too large",
	CodeInternal:        "Internal server error",
}

func write(c *fiber.Ctx, status int, body Response) error {
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, code Code, message string, details interface{}) error {
	if message == "" {
		message = defaultMessages[code]
	}
	return write(c, status, Response{
		Error: &ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func Success(c *fiber.Ctx, data interface{}) error {
	return write(c, fiber.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created answers 201 with the new resource
func Created(c *fiber.Ctx, data interface{}) error {
	return write(c, fiber.StatusCreated, Response{Success: true, Message: "Created successfully", Data: data})
}

// Error answers with an arbitrary status and code
func Error(c *fiber.Ctx, status int, message string, code Code) error {
	return fail(c, status, code, message, nil)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, CodeBadRequest, message, nil)
}

// ValidationError answers 400 with a field -> message map in details
func ValidationError(c *fiber.Ctx, fields map[string]string) error {
	return fail(c, fiber.StatusBadRequest, CodeValidation, "Validation failed", fields)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func TooManyRequests(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusTooManyRequests, CodeTooManyRequests, message, nil)
}

func PayloadTooLarge(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusRequestEntityTooLarge, CodePayloadTooLarge, message, nil)
}

// InternalServerError never carries the underlying error to the client
func InternalServerError(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusInternalServerError, CodeInternal, message, nil)
}

func Paginated(c *fiber.Ctx, data interface{}, pagination PaginationMeta) error {
	return c.Status(fiber.StatusOK).JSON(PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// CalculatePagination clamps page to >= 1 and limit to 1..100 (default 20)
func CalculatePagination(page, limit int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 20
	case limit > 100:
		limit = 100
	}

	return PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
	}
}
