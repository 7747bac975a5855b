package kube

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrorKind classifies a failed cluster read
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NotFound"
	KindForbidden       ErrorKind = "Forbidden"
	KindUnauthenticated ErrorKind = "Unauthenticated"
	KindBadRequest      ErrorKind = "BadRequest"
	KindOther           ErrorKind = "Other"
)

// Resource names the kind of object a fetch was about
type Resource string

const (
	ResourcePod       Resource = "pod"
	ResourceService   Resource = "service"
	ResourceEndpoints Resource = "endpoints"
	ResourceNamespace Resource = "namespace"
	ResourceCluster   Resource = "cluster"
)

// FetchError wraps an API server error with what was being read
type FetchError struct {
	Kind      ErrorKind
	Resource  Resource
	Namespace string
	Name      string
	Err       error
}

func (e *FetchError) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("failed to get %s %s/%s: %v", e.Resource, e.Namespace, e.Name, e.Err)
	case e.Namespace != "":
		return fmt.Sprintf("failed to list %ss in namespace %s: %v", e.Resource, e.Namespace, e.Err)
	default:
		return fmt.Sprintf("failed to read %s: %v", e.Resource, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Message returns the upstream error text without the fetch context
func (e *FetchError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newFetchError(resource Resource, namespace, name string, err error) *FetchError {
	return &FetchError{
		Kind:      Classify(err),
		Resource:  resource,
		Namespace: namespace,
		Name:      name,
		Err:       err,
	}
}

// Classify maps an error to its ErrorKind. Errors already wrapped in a
// FetchError keep their kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}

	switch {
	case apierrors.IsNotFound(err):
		return KindNotFound
	case apierrors.IsForbidden(err):
		return KindForbidden
	case apierrors.IsUnauthorized(err):
		return KindUnauthenticated
	case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
		return KindBadRequest
	default:
		return KindOther
	}
}

// AsFetchError extracts a FetchError from the chain
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
