package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// Response is the envelope every trigger endpoint answers with
type Response struct {
	Status  bool              `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: true, Message: message, Data: data})
}

func respondInvalid(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, Response{Status: false, Errors: fields})
}

func respondError(c *gin.Context, apiErr *Error, cause error) {
	resp := Response{Status: false, Message: apiErr.Message}
	if cause != nil {
		resp.Error = cause.Error()
	}
	c.JSON(apiErr.Code, resp)
}

// fieldErrors turns a binding failure into per-field messages
func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "min":
				fields[name] = fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
			case "max":
				fields[name] = fmt.Sprintf("The %s may not be greater than %s.", name, fe.Param())
			default:
				fields[name] = fmt.Sprintf("The %s is invalid.", name)
			}
		}
		return fields
	}

	// Decode failures carry no field; the only input is limit
	fields["limit"] = "The limit must be an integer."
	return fields
}
