package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/moolen/kubediagnose/internal/api"
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

var validator = api.NewValidator()

// decode unmarshals tool arguments, treating empty input as an empty object
func decode(input json.RawMessage, v interface{}) error {
	if len(input) == 0 || string(input) == "null" {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// friendly converts a diagnosis error into the message the REST API would return
func friendly(err error, target api.Target) error {
	return errors.New(api.FromDiagnosisError(err, target).Message)
}

// DebugPodInput is the input of debug_pod
type DebugPodInput struct {
	Namespace string `json:"namespace"`
	PodName   string `json:"pod_name"`
}

// DebugPodTool implements the debug_pod MCP tool
type DebugPodTool struct {
	diagnoser Diagnoser
}

// NewDebugPodTool creates a new debug_pod tool
func NewDebugPodTool(diagnoser Diagnoser) *DebugPodTool {
	return &DebugPodTool{diagnoser: diagnoser}
}

// Execute runs the debug_pod tool
func (t *DebugPodTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params DebugPodInput
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if err := validator.ValidateNamespace(params.Namespace); err != nil {
		return nil, err
	}
	if err := validator.ValidateName("pod", params.PodName); err != nil {
		return nil, err
	}

	result, err := t.diagnoser.DebugPod(ctx, params.Namespace, params.PodName)
	if err != nil {
		return nil, friendly(err, api.Target{Resource: "pod", Namespace: params.Namespace, Name: params.PodName})
	}
	return result, nil
}

// NamespaceInput is the input of the namespace-wide tools
type NamespaceInput struct {
	Namespace string `json:"namespace"`
}

// DebugPodsTool implements the debug_pods MCP tool
type DebugPodsTool struct {
	diagnoser Diagnoser
}

// NewDebugPodsTool creates a new debug_pods tool
func NewDebugPodsTool(diagnoser Diagnoser) *DebugPodsTool {
	return &DebugPodsTool{diagnoser: diagnoser}
}

// Execute runs the debug_pods tool
func (t *DebugPodsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params NamespaceInput
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if err := validator.ValidateNamespace(params.Namespace); err != nil {
		return nil, err
	}

	result, err := t.diagnoser.DebugPods(ctx, params.Namespace)
	if err != nil {
		return nil, friendly(err, api.Target{Resource: "pod", Namespace: params.Namespace})
	}
	return result, nil
}

// DebugServiceInput is the input of debug_service
type DebugServiceInput struct {
	Namespace   string `json:"namespace"`
	ServiceName string `json:"service_name"`
}

// DebugServiceTool implements the debug_service MCP tool
type DebugServiceTool struct {
	diagnoser Diagnoser
}

// NewDebugServiceTool creates a new debug_service tool
func NewDebugServiceTool(diagnoser Diagnoser) *DebugServiceTool {
	return &DebugServiceTool{diagnoser: diagnoser}
}

// Execute runs the debug_service tool
func (t *DebugServiceTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params DebugServiceInput
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if err := validator.ValidateNamespace(params.Namespace); err != nil {
		return nil, err
	}
	if err := validator.ValidateName("service", params.ServiceName); err != nil {
		return nil, err
	}

	result, err := t.diagnoser.DebugService(ctx, params.Namespace, params.ServiceName)
	if err != nil {
		return nil, friendly(err, api.Target{Resource: "service", Namespace: params.Namespace, Name: params.ServiceName})
	}
	return result, nil
}

// DebugServicesTool implements the debug_services MCP tool
type DebugServicesTool struct {
	diagnoser Diagnoser
}

// NewDebugServicesTool creates a new debug_services tool
func NewDebugServicesTool(diagnoser Diagnoser) *DebugServicesTool {
	return &DebugServicesTool{diagnoser: diagnoser}
}

// Execute runs the debug_services tool
func (t *DebugServicesTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params NamespaceInput
	if err := decode(input, &params); err != nil {
		return nil, err
	}
	if err := validator.ValidateNamespace(params.Namespace); err != nil {
		return nil, err
	}

	result, err := t.diagnoser.DebugServices(ctx, params.Namespace)
	if err != nil {
		return nil, friendly(err, api.Target{Resource: "service", Namespace: params.Namespace})
	}
	return result, nil
}

// ListNamespacesTool implements the list_namespaces MCP tool
type ListNamespacesTool struct {
	diagnoser Diagnoser
}

// NewListNamespacesTool creates a new list_namespaces tool
func NewListNamespacesTool(diagnoser Diagnoser) *ListNamespacesTool {
	return &ListNamespacesTool{diagnoser: diagnoser}
}

// Execute runs the list_namespaces tool. Input is ignored.
func (t *ListNamespacesTool) Execute(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	result, err := t.diagnoser.ListNamespaces(ctx)
	if err != nil {
		return nil, errors.New(api.FromNamespaceListError(err).Message)
	}
	return result, nil
}
