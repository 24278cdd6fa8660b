package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, conflict, unavailable, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
	// Explanation is set when the map itself is unavailable.
	Explanation any `json:"explanation,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(apiError(c, status, code, message))
}

func apiError(c *fiber.Ctx, status int, code, message string) APIError {
	reqID, _ := c.Locals("requestid").(string)
	return APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	}
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// ErrorHandler renders errors returned by handlers and middleware as APIError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status, msg = fe.Code, fe.Message
	}
	code := "internal_error"
	switch {
	case status == fiber.StatusNotFound:
		code = "not_found"
	case status == fiber.StatusTooManyRequests:
		code = "rate_limited"
	case status == fiber.StatusRequestTimeout:
		code = "timeout"
	case status < 500:
		code = "bad_request"
	}
	if status >= 500 {
		LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
	}
	return c.Status(status).JSON(apiError(c, status, code, msg))
}
