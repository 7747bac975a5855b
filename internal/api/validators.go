package api

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Validator validates request path parameters
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateNamespace checks a namespace against the DNS-1123 label rules
func (v *Validator) ValidateNamespace(namespace string) error {
	if namespace == "" {
		return NewValidationError("namespace is required")
	}
	if errs := validation.IsDNS1123Label(namespace); len(errs) > 0 {
		return NewValidationError("invalid namespace %q: %s", namespace, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateName checks a pod or service name. Pod names are DNS-1123
// subdomains, service names DNS-1035 labels; the subdomain rule accepts both.
func (v *Validator) ValidateName(kind, name string) error {
	if name == "" {
		return NewValidationError("%s name is required", kind)
	}
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return NewValidationError("invalid %s name %q: %s", kind, name, strings.Join(errs, "; "))
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	message string
}

// NewValidationError creates a new validation error
func NewValidationError(message string, args ...interface{}) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf(message, args...),
	}
}

// Error returns the error message
func (ve *ValidationError) Error() string {
	return ve.message
}
