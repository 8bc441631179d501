package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/malina-auth/internal/domain/auth"
	apperrors "github.com/yanqian/malina-auth/pkg/errors"
)

const invalidCredentialsMessage = "invalid email or password"

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return internalError(err)
}

func internalError(err error) *HTTPError {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// loginHTTPError maps errors from password sign-in. Unknown email and wrong password
// produce the same response.
func loginHTTPError(err error) *HTTPError {
	switch apperrors.CodeOf(err) {
	case auth.ReasonNotFound.String(), auth.ReasonBadCredentials.String():
		return NewHTTPError(http.StatusUnauthorized, "invalid_credentials", invalidCredentialsMessage, err)
	}
	return authHTTPError(err)
}

// authHTTPError maps Service errors onto HTTP statuses.
func authHTTPError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	message := apperrors.MessageOf(err)
	switch code {
	case auth.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, code, message, err)
	case auth.ReasonBadCredentials.String():
		return NewHTTPError(http.StatusUnauthorized, "invalid_credentials", message, err)
	case auth.ReasonExpiredToken.String(), auth.ReasonInvalidSignature.String(), auth.ReasonMalformedToken.String():
		return NewHTTPError(http.StatusUnauthorized, code, message, err)
	case auth.ReasonNotFound.String():
		return NewHTTPError(http.StatusNotFound, "not_found", message, err)
	case auth.CodeConflict:
		return NewHTTPError(http.StatusConflict, code, message, err)
	case auth.CodeTooManyAttempts:
		return NewHTTPError(http.StatusTooManyRequests, code, message, err)
	case auth.CodeNotConfigured:
		return NewHTTPError(http.StatusServiceUnavailable, code, message, err)
	case auth.CodeOAuthExchange:
		return NewHTTPError(http.StatusBadGateway, code, message, err)
	case auth.CodeStoreTimeout:
		return NewHTTPError(http.StatusGatewayTimeout, code, "request timed out", err)
	default:
		return internalError(err)
	}
}
