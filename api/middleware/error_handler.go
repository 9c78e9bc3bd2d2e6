// api/middleware/error_handler.go
package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10" // Import validator for binding errors

	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/credentials"
	"github.com/smbworks/erp-backend/internal/logger"
	"github.com/smbworks/erp-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Only the last attached error shapes the response.
		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		statusCode, userMessage := classify(err)

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Warnf("[ErrorHandler] Response already written before handling error.")
		}
	}
}

// classify maps an error to an HTTP status and the message shown to clients.
func classify(err error) (int, string) {
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, credentials.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrEmailExists),
		errors.Is(err, storage.ErrInUse):
		return http.StatusConflict, err.Error()

	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Authentication token has expired."
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenClaimsInvalid),
		errors.Is(err, auth.ErrUnexpectedSigningMethod):
		return http.StatusUnauthorized, "Invalid or malformed authentication token."
	case errors.Is(err, ErrInvalidAPIKey):
		return http.StatusUnauthorized, "Invalid or missing API key"
	case errors.Is(err, ErrAdminKeyNotConfigured):
		return http.StatusUnauthorized, "Admin key not configured"
	case errors.Is(err, ErrInvalidAdminKey):
		return http.StatusUnauthorized, "Invalid admin key"
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, auth.ErrLockedOut):
		return http.StatusTooManyRequests, err.Error()

	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
		}
		return http.StatusBadRequest, "Validation failed. Please check your input."

	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "Malformed JSON body."

	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidField),
		errors.Is(err, storage.ErrInvalidReference),
		errors.Is(err, credentials.ErrInvalidRetention):
		return http.StatusBadRequest, err.Error()
	}

	customLog.Warnf("Unhandled error type: %T, Error: %v", err, err)
	return http.StatusInternalServerError, "An unexpected internal server error occurred."
}
