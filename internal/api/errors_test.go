package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moolen/kubediagnose/internal/kube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchErr(kind kube.ErrorKind, msg string) error {
	return fmt.Errorf("diagnose: %w", &kube.FetchError{Kind: kind, Resource: kube.ResourcePod, Err: errors.New(msg)})
}

func TestFromDiagnosisError(t *testing.T) {
	pod := Target{Resource: "pod", Namespace: "default", Name: "web"}
	services := Target{Resource: "service", Namespace: "prod"}

	tests := []struct {
		name       string
		err        error
		target     Target
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			name:       "pod not found",
			err:        fetchErr(kube.KindNotFound, "pods \"web\" not found"),
			target:     pod,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrorCodeNotFound,
			wantMsg:    "Pod 'web' not found in namespace 'default'",
		},
		{
			name:       "service not found",
			err:        fetchErr(kube.KindNotFound, "not found"),
			target:     Target{Resource: "service", Namespace: "default", Name: "api"},
			wantStatus: http.StatusNotFound,
			wantCode:   ErrorCodeNotFound,
			wantMsg:    "Service 'api' not found in namespace 'default'",
		},
		{
			name:       "namespace not found",
			err:        fetchErr(kube.KindNotFound, "not found"),
			target:     services,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrorCodeNotFound,
			wantMsg:    "Namespace 'prod' not found",
		},
		{
			name:       "unauthenticated",
			err:        fetchErr(kube.KindUnauthenticated, "Unauthorized"),
			target:     pod,
			wantStatus: http.StatusForbidden,
			wantCode:   ErrorCodeForbidden,
			wantMsg:    "Authentication failed. Check your kubeconfig credentials.",
		},
		{
			name:       "pod forbidden",
			err:        fetchErr(kube.KindForbidden, "rbac"),
			target:     pod,
			wantStatus: http.StatusForbidden,
			wantCode:   ErrorCodeForbidden,
			wantMsg:    "Access denied to pod 'web' in namespace 'default'. Check RBAC permissions.",
		},
		{
			name:       "services forbidden",
			err:        fetchErr(kube.KindForbidden, "rbac"),
			target:     services,
			wantStatus: http.StatusForbidden,
			wantCode:   ErrorCodeForbidden,
			wantMsg:    "Access denied to services in namespace 'prod'. Check RBAC permissions.",
		},
		{
			name:       "bad request",
			err:        fetchErr(kube.KindBadRequest, "invalid selector"),
			target:     pod,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
			wantMsg:    "Error communicating with Kubernetes API: invalid selector",
		},
		{
			name:       "other",
			err:        fetchErr(kube.KindOther, "etcd timeout"),
			target:     services,
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
			wantMsg:    "Error communicating with Kubernetes API: etcd timeout",
		},
		{
			name:       "unexpected single",
			err:        errors.New("boom"),
			target:     pod,
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
			wantMsg:    "An unexpected error occurred while debugging the pod: boom",
		},
		{
			name:       "unexpected bulk",
			err:        errors.New("boom"),
			target:     services,
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
			wantMsg:    "An unexpected error occurred while debugging services: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDiagnosisError(tt.err, tt.target)

			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestFromNamespaceListError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "forbidden",
			err:        fetchErr(kube.KindForbidden, "rbac"),
			wantStatus: http.StatusForbidden,
			wantMsg:    "Access denied to list namespaces. Check RBAC permissions.",
		},
		{
			name:       "unauthenticated",
			err:        fetchErr(kube.KindUnauthenticated, "Unauthorized"),
			wantStatus: http.StatusForbidden,
			wantMsg:    "Authentication failed. Check your kubeconfig credentials.",
		},
		{
			name:       "not found is internal",
			err:        fetchErr(kube.KindNotFound, "the server could not find the requested resource"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Error communicating with Kubernetes API: the server could not find the requested resource",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "An unexpected error occurred while listing namespaces: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromNamespaceListError(tt.err)

			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestWriteError_Envelope(t *testing.T) {
	prev := now
	now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	tests := []struct {
		name string
		err  error
		want ErrorResponse
	}{
		{
			name: "api error",
			err:  NewNotFoundError("Pod '%s' not found in namespace '%s'", "web", "default"),
			want: ErrorResponse{Error: "NOT_FOUND", Message: "Pod 'web' not found in namespace 'default'", Status: 404, Timestamp: "2024-01-01T12:00:00Z"},
		},
		{
			name: "validation error",
			err:  NewValidationError("namespace is required"),
			want: ErrorResponse{Error: "INVALID_REQUEST", Message: "namespace is required", Status: 400, Timestamp: "2024-01-01T12:00:00Z"},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: ErrorResponse{Error: "INTERNAL_ERROR", Message: "boom", Status: 500, Timestamp: "2024-01-01T12:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			WriteError(rec, tt.err)

			assert.Equal(t, tt.want.Status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteResult_NoHTMLEscaping(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteResult(rec, map[string]string{"message": "a <b> & c"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\"message\":\"a <b> & c\"}\n", rec.Body.String())
}
