package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contactdomain "github.com/smallbiznis/invoicebook/internal/contact/domain"
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	itemdomain "github.com/smallbiznis/invoicebook/internal/item/domain"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
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

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Action  string            `json:"action"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

// Client actions attached to every error response.
const (
	actionFixInput       = "fix_input"
	actionRetry          = "retry"
	actionContactSupport = "contact_support"
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
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
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

// classifyErrorForLog returns the error type and action logged per request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Action
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
			Action:  actionContactSupport,
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Action:  actionFixInput,
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
			Action:  actionFixInput,
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
			Action:  actionFixInput,
		}
	}

	if code, ok := conflictErrorCode(err); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: validationErrorMessage(code),
			Action:  actionFixInput,
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Action:  actionFixInput,
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, invoicedomain.ErrTransient),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "temporarily unavailable, try again",
			Action:  actionRetry,
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests, slow down",
			Action:  actionRetry,
		}
	case errors.Is(err, invoicedomain.ErrAllocationExhausted):
		return http.StatusInternalServerError, errorPayload{
			Type:    "allocation_exhausted",
			Message: "could not allocate an invoice number",
			Action:  actionContactSupport,
		}
	case errors.Is(err, invoicedomain.ErrSuffixOutOfRange):
		return http.StatusInternalServerError, errorPayload{
			Type:    "sequence_exhausted",
			Message: "invoice number sequence for this period is full",
			Action:  actionContactSupport,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
			Action:  actionContactSupport,
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, invoicedomain.ErrInvalidOwner),
		errors.Is(err, contactdomain.ErrInvalidOwner),
		errors.Is(err, itemdomain.ErrInvalidOwner):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, contactdomain.ErrNotFound),
		errors.Is(err, itemdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

var conflictErrors = []error{
	invoicedomain.ErrDuplicateIdentifier,
	invoicedomain.ErrImmutableIdentifier,
	itemdomain.ErrDuplicateName,
}

var validationErrors = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidDate,
	invoicedomain.ErrInvalidInvoiceType,
	invoicedomain.ErrInvalidSupplyType,
	invoicedomain.ErrInvalidContact,
	invoicedomain.ErrInvalidItem,
	invoicedomain.ErrPrefixMismatch,
	invoicedomain.ErrInvalidIdentifierFormat,
	invoicedomain.ErrInvalidQuantity,
	invoicedomain.ErrInvalidRate,
	invoicedomain.ErrInvalidDiscount,
	contactdomain.ErrInvalidName,
	contactdomain.ErrInvalidEmail,
	contactdomain.ErrInvalidMobile,
	contactdomain.ErrInvalidID,
	itemdomain.ErrInvalidID,
	itemdomain.ErrInvalidName,
	itemdomain.ErrInvalidSAC,
	itemdomain.ErrInvalidType,
	itemdomain.ErrInvalidUnitType,
	itemdomain.ErrInvalidTaxCategory,
	itemdomain.ErrInvalidRate,
	itemdomain.ErrInvalidDiscount,
}

func conflictErrorCode(err error) (string, bool) {
	return matchErrorCode(err, conflictErrors)
}

func validationErrorCode(err error) (string, bool) {
	return matchErrorCode(err, validationErrors)
}

// matchErrorCode returns the code of the first sentinel err wraps.
func matchErrorCode(err error, sentinels []error) (string, bool) {
	for _, target := range sentinels {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_page_token":
		return "page_token"
	case "prefix_mismatch", "invalid_identifier_format", "duplicate_identifier", "immutable_identifier":
		return "invoice_number"
	case "invalid_date":
		return "invoice_date"
	case "invalid_contact":
		return "contact_id"
	case "invalid_item":
		return "line_items"
	case "duplicate_name":
		return "name"
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
	case "prefix_mismatch":
		return "invoice number does not belong to the period of the invoice date"
	case "invalid_identifier_format":
		return "invoice number must end with a 4 digit sequence"
	case "duplicate_identifier":
		return "invoice number already exists"
	case "immutable_identifier":
		return "invoice number cannot be changed"
	case "duplicate_name":
		return "name already exists"
	case "invalid_quantity":
		return "quantity must not be negative"
	case "invalid_rate":
		return "rate must not be negative"
	case "invalid_discount":
		return "discount must not be negative"
	default:
		return "invalid value"
	}
}
