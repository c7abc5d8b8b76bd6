package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"telehealth-server/internal/scheduling"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	SuccessWithWarning(c, message, data, "")
}

// SuccessWithWarning is Success for writes whose side effects partly failed.
func SuccessWithWarning(c *gin.Context, message string, data interface{}, warning string) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
		Warning: warning,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	CreatedWithWarning(c, message, data, "")
}

func CreatedWithWarning(c *gin.Context, message string, data interface{}, warning string) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
		Warning: warning,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Code:    codeFor(statusCode),
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// RespondError maps a scheduling error onto its HTTP status. Anything else
// is attached to the context for the request logger and reported as a 500
// without leaking details.
func RespondError(c *gin.Context, err error) {
	var se *scheduling.Error
	if !errors.As(err, &se) {
		_ = c.Error(err)
		InternalServerError(c, "Internal server error")
		return
	}

	switch se.Kind {
	case scheduling.KindNotFound:
		NotFound(c, se.Message)
	case scheduling.KindInvalidRequest:
		BadRequest(c, se.Message)
	case scheduling.KindConflict:
		Conflict(c, se.Message)
	case scheduling.KindForbidden:
		Forbidden(c, se.Message)
	default:
		_ = c.Error(err)
		InternalServerError(c, "Internal server error")
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(scheduling.KindInvalidRequest)
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return string(scheduling.KindForbidden)
	case http.StatusNotFound:
		return string(scheduling.KindNotFound)
	case http.StatusConflict:
		return string(scheduling.KindConflict)
	default:
		return "INTERNAL"
	}
}
