package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/moolen/kubediagnose/internal/kube"
)

// ErrorResponse is the JSON envelope of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorCode represents error codes used in API responses
type ErrorCode string

const (
	// ErrorCodeInvalidRequest represents invalid request parameters
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrorCodeNotFound represents a not found error
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeInternalError represents an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeForbidden represents forbidden access
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrorCodeMethodNotAllowed is returned for anything but GET
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

const authFailedMessage = "Authentication failed. Check your kubeconfig credentials."

// APIError represents an API error with status code and message
type APIError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, statusCode int, message string) *APIError {
	return &APIError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Error returns the error message
func (e *APIError) Error() string {
	return e.Message
}

// Response renders the envelope stamped with now
func (e *APIError) Response(now time.Time) ErrorResponse {
	return ErrorResponse{
		Error:     string(e.Code),
		Message:   e.Message,
		Status:    e.StatusCode,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, fmt.Sprintf(message, args...))
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeNotFound, http.StatusNotFound, fmt.Sprintf(message, args...))
}

// NewInternalServerError creates an internal server error
func NewInternalServerError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInternalError, http.StatusInternalServerError, fmt.Sprintf(message, args...))
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeForbidden, http.StatusForbidden, fmt.Sprintf(message, args...))
}

// NewMethodNotAllowedError rejects a non-GET request
func NewMethodNotAllowedError(method string) *APIError {
	return NewAPIError(ErrorCodeMethodNotAllowed, http.StatusMethodNotAllowed,
		fmt.Sprintf("Method %s not allowed", method))
}

// Target describes the subject of a diagnosis request. Name is empty for
// namespace-wide requests.
type Target struct {
	// Resource is the lowercase singular kind: "pod" or "service"
	Resource  string
	Namespace string
	Name      string
}

// FromDiagnosisError maps an error from the diagnosis service to the
// envelope the REST boundary returns.
func FromDiagnosisError(err error, target Target) *APIError {
	fe, ok := kube.AsFetchError(err)
	if !ok {
		if target.Name != "" {
			return NewInternalServerError("An unexpected error occurred while debugging the %s: %v", target.Resource, err)
		}
		return NewInternalServerError("An unexpected error occurred while debugging %ss: %v", target.Resource, err)
	}

	switch fe.Kind {
	case kube.KindNotFound:
		if target.Name != "" {
			return NewNotFoundError("%s '%s' not found in namespace '%s'", title(target.Resource), target.Name, target.Namespace)
		}
		return NewNotFoundError("Namespace '%s' not found", target.Namespace)
	case kube.KindUnauthenticated:
		return NewForbiddenError(authFailedMessage)
	case kube.KindForbidden:
		if target.Name != "" {
			return NewForbiddenError("Access denied to %s '%s' in namespace '%s'. Check RBAC permissions.",
				target.Resource, target.Name, target.Namespace)
		}
		return NewForbiddenError("Access denied to %ss in namespace '%s'. Check RBAC permissions.",
			target.Resource, target.Namespace)
	default:
		return kubeCommunicationError(fe)
	}
}

// FromNamespaceListError maps a failed namespace listing. NotFound is not
// expected here and is reported as an internal error.
func FromNamespaceListError(err error) *APIError {
	fe, ok := kube.AsFetchError(err)
	if !ok {
		return NewInternalServerError("An unexpected error occurred while listing namespaces: %v", err)
	}

	switch fe.Kind {
	case kube.KindUnauthenticated:
		return NewForbiddenError(authFailedMessage)
	case kube.KindForbidden:
		return NewForbiddenError("Access denied to list namespaces. Check RBAC permissions.")
	default:
		return kubeCommunicationError(fe)
	}
}

func kubeCommunicationError(fe *kube.FetchError) *APIError {
	message := "Error communicating with Kubernetes API: " + fe.Message()
	if fe.Kind == kube.KindBadRequest {
		return NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, message)
	}
	return NewAPIError(ErrorCodeInternalError, http.StatusInternalServerError, message)
}

func title(resource string) string {
	if resource == "" {
		return resource
	}
	return strings.ToUpper(resource[:1]) + resource[1:]
}
