package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ticketflow/internal/lifecycle"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	subscriptiondomain "github.com/smallbiznis/ticketflow/internal/subscription/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorResponse struct {
	Success bool              `json:"success"`
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, failure("internal_error", "internal server error")
	}

	if vErr := asValidationErrors(err); vErr != nil {
		resp := failure("validation_error", vErr.Errors[0].Message)
		resp.Errors = vErr.Errors
		return http.StatusBadRequest, resp
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		resp := failure("validation_error", code)
		resp.Errors = []ValidationError{
			{
				Field:   validationErrorField(code),
				Code:    code,
				Message: validationErrorMessage(code),
			},
		}
		return http.StatusBadRequest, resp
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, failure("unauthorized", "unauthorized")
	case errors.Is(err, otpdomain.ErrCodeNotFound),
		errors.Is(err, otpdomain.ErrInvalidCode),
		errors.Is(err, otpdomain.ErrExpired):
		return http.StatusUnauthorized, failure("invalid_code", err.Error())
	case errors.Is(err, otpdomain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, failure("too_many_attempts", err.Error())
	case errors.Is(err, ErrConflict),
		errors.Is(err, paymentdomain.ErrStatusRegression),
		errors.Is(err, lifecycle.ErrNotRedrivable),
		errors.Is(err, lifecycle.ErrBusy):
		return http.StatusConflict, failure("conflict", err.Error())
	case isNotFoundError(err):
		return http.StatusNotFound, failure("not_found", "not found")
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, failure("service_unavailable", "service unavailable")
	default:
		return http.StatusInternalServerError, failure("internal_error", "internal server error")
	}
}

func failure(errType, message string) errorResponse {
	return errorResponse{Success: false, Type: errType, Message: message}
}

// classifyErrorForLog returns the error type and code the request logger
// attaches to failed requests.
func classifyErrorForLog(err error) (string, string) {
	_, resp := mapError(err)
	code := resp.Type
	if len(resp.Errors) > 0 {
		code = resp.Errors[0].Code
	}
	return resp.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil && len(vErr.Errors) > 0 {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tenant.ErrInvalidKey):
		return true
	case errors.Is(err, tokendomain.ErrInvalidRole),
		errors.Is(err, tokendomain.ErrInvalidUserID),
		errors.Is(err, tokendomain.ErrInvalidToken):
		return true
	case errors.Is(err, ticketdomain.ErrInvalidBookingID):
		return true
	case errors.Is(err, paymentdomain.ErrInvalidTxnID),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidPageToken):
		return true
	case errors.Is(err, maildomain.ErrInvalidRecipient),
		errors.Is(err, maildomain.ErrInvalidSubject),
		errors.Is(err, maildomain.ErrInvalidPageToken):
		return true
	case errors.Is(err, notificationdomain.ErrInvalidCustomer),
		errors.Is(err, notificationdomain.ErrInvalidTitle):
		return true
	case errors.Is(err, profiledomain.ErrInvalidUID),
		errors.Is(err, profiledomain.ErrInvalidEmail),
		errors.Is(err, subscriptiondomain.ErrInvalidUID),
		errors.Is(err, otpdomain.ErrInvalidEmail):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tokendomain.ErrTokenNotFound),
		errors.Is(err, ticketdomain.ErrTicketNotFound),
		errors.Is(err, paymentdomain.ErrTransactionNotFound),
		errors.Is(err, profiledomain.ErrProfileNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, tenant.ErrInvalidKey):
		return "invalid_tenant"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
