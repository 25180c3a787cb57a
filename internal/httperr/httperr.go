package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

// WriteError maps a business error kind onto an HTTP status. Anything that
// is not a BusinessError is an internal failure.
func WriteError(c *gin.Context, err error) {
	var be BusinessError
	if !errors.As(err, &be) {
		Internal(c, "internal_error", "unexpected error")
		return
	}

	switch be.Kind {
	case KindValidation, KindVoucher, KindAmountMismatch:
		BadRequest(c, be.Code, be.Code)
	case KindTransition, KindConflict:
		Write(c, http.StatusConflict, be.Code, be.Code)
	case KindUnauthorized:
		Write(c, http.StatusForbidden, be.Code, be.Code)
	case KindRateLimited:
		c.Header("Retry-After", "60")
		Write(c, http.StatusTooManyRequests, be.Code, be.Code)
	case KindNotFound:
		NotFound(c, be.Code, be.Code)
	case KindGateway:
		Write(c, http.StatusBadGateway, be.Code, be.Code)
	default:
		Internal(c, be.Code, be.Code)
	}
}
