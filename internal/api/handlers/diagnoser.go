package handlers

import (
	"context"

	"github.com/moolen/kubediagnose/internal/models"
)

// Diagnoser runs diagnoses against the cluster. diagnosis.Service
// implements it.
type Diagnoser interface {
	DebugPod(ctx context.Context, namespace, name string) (*models.PodDiagnosticResult, error)
	DebugPods(ctx context.Context, namespace string) (*models.BulkPodDiagnosticResult, error)
	DebugService(ctx context.Context, namespace, name string) (*models.ServiceDiagnosticResult, error)
	DebugServices(ctx context.Context, namespace string) (*models.BulkServiceDiagnosticResult, error)
	ListNamespaces(ctx context.Context) (*models.NamespaceList, error)
}
