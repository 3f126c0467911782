package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/authorization"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/geo"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/constructtrack/internal/observability/metrics"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"github.com/smallbiznis/constructtrack/internal/report"
	"github.com/smallbiznis/constructtrack/internal/snapshot"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
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
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded with the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, obsmetrics.ClassifyReason(err)
	}
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if status == http.StatusConflict || status == http.StatusNotFound {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	geo.ErrInvalidLocation,
	photo.ErrInvalidImage,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	companydomain.ErrInvalidName,
	companydomain.ErrInvalidCurrency,
	companydomain.ErrInvalidTimezone,
	companydomain.ErrInvalidMarkup,
	companydomain.ErrInvalidID,
	userdomain.ErrInvalidID,
	userdomain.ErrInvalidName,
	userdomain.ErrInvalidRole,
	userdomain.ErrInvalidAccessRole,
	userdomain.ErrInvalidHourlyRate,
	projectdomain.ErrInvalidID,
	projectdomain.ErrInvalidName,
	projectdomain.ErrInvalidType,
	projectdomain.ErrInvalidStatus,
	projectdomain.ErrInvalidBudget,
	projectdomain.ErrInvalidMarkup,
	projectdomain.ErrInvalidDateRange,
	projectdomain.ErrInvalidText,
	projectdomain.ErrNoImages,
	projectdomain.ErrInvalidAmount,
	taskdomain.ErrInvalidID,
	taskdomain.ErrInvalidProject,
	taskdomain.ErrInvalidAssignee,
	taskdomain.ErrInvalidTitle,
	taskdomain.ErrInvalidStatus,
	timetrackingdomain.ErrInvalidUserID,
	timetrackingdomain.ErrInvalidProjectID,
	inventorydomain.ErrInvalidItemID,
	inventorydomain.ErrInvalidProjectID,
	inventorydomain.ErrInvalidName,
	inventorydomain.ErrInvalidUnit,
	inventorydomain.ErrInvalidCost,
	inventorydomain.ErrInvalidQuantity,
	inventorydomain.ErrInvalidThreshold,
	inventorydomain.ErrInvalidReceipt,
	inventorydomain.ErrInvalidOrderEntry,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidProjectID,
	invoicedomain.ErrInvalidStatus,
	report.ErrInvalidUserID,
	report.ErrInvalidProjectID,
	snapshot.ErrUnknownCollection,
	snapshot.ErrInvalidSnapshot,
}

// Missing company context is a client error: the header was absent or bad.
var companyErrors = []error{
	companydomain.ErrInvalidCompany,
	userdomain.ErrInvalidCompany,
	projectdomain.ErrInvalidCompany,
	taskdomain.ErrInvalidCompany,
	timetrackingdomain.ErrInvalidCompany,
	inventorydomain.ErrInvalidCompany,
	invoicedomain.ErrInvalidCompany,
	auditdomain.ErrInvalidCompany,
	authorization.ErrInvalidCompany,
	report.ErrInvalidCompany,
	snapshot.ErrInvalidCompany,
}

var conflictErrors = []error{
	ErrConflict,
	timetrackingdomain.ErrInvalidTransition,
	timetrackingdomain.ErrSameProject,
	invoicedomain.ErrNothingToInvoice,
	invoicedomain.ErrAlreadyInvoiced,
	inventorydomain.ErrInsufficientStock,
	gorm.ErrDuplicatedKey,
}

var notFoundErrors = []error{
	ErrNotFound,
	companydomain.ErrNotFound,
	userdomain.ErrNotFound,
	projectdomain.ErrNotFound,
	projectdomain.ErrItemNotFound,
	projectdomain.ErrPhotoNotFound,
	photo.ErrNotFound,
	taskdomain.ErrNotFound,
	inventorydomain.ErrItemNotFound,
	invoicedomain.ErrNotFound,
	snapshot.ErrNoSnapshot,
	report.ErrNoLogs,
	gorm.ErrRecordNotFound,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidationError(err error) bool {
	return isAny(err, validationErrors) || isAny(err, companyErrors)
}

func isConflictError(err error) bool {
	return isAny(err, conflictErrors)
}

func isNotFoundError(err error) bool {
	return isAny(err, notFoundErrors)
}

func conflictMessage(err error) string {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return strings.ReplaceAll(target.Error(), "_", " ")
		}
	}
	return "conflict"
}

func validationErrorCode(err error) string {
	if isAny(err, companyErrors) {
		return "invalid_company"
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
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
	case "invalid_company":
		return "missing or unknown company"
	case "no_images":
		return "at least one image is required"
	default:
		return "invalid value"
	}
}
