package handlers

import (
	"net/http"

	"github.com/moolen/kubediagnose/internal/api"
	"github.com/moolen/kubediagnose/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PodHandler serves /api/debug/pod and /api/debug/pods
type PodHandler struct {
	diagnoser Diagnoser
	logger    *logging.Logger
	validator *api.Validator
	tracer    trace.Tracer
}

// NewPodHandler creates a new pod handler
func NewPodHandler(diagnoser Diagnoser, logger *logging.Logger, tracer trace.Tracer) *PodHandler {
	return &PodHandler{
		diagnoser: diagnoser,
		logger:    logger,
		validator: api.NewValidator(),
		tracer:    tracer,
	}
}

// HandlePod diagnoses {namespace}/{podName}
func (h *PodHandler) HandlePod(w http.ResponseWriter, r *http.Request) {
	namespace, name := r.PathValue("namespace"), r.PathValue("podName")

	ctx, span := h.tracer.Start(r.Context(), "api.debug_pod",
		trace.WithAttributes(attribute.String("namespace", namespace), attribute.String("pod", name)))
	defer span.End()

	if err := h.validator.ValidateNamespace(namespace); err != nil {
		api.WriteError(w, err)
		return
	}
	if err := h.validator.ValidateName("pod", name); err != nil {
		api.WriteError(w, err)
		return
	}

	logger := h.logger.WithContext(ctx)
	logger.Info("Received debug request for pod: %s/%s", namespace, name)

	result, err := h.diagnoser.DebugPod(ctx, namespace, name)
	if err != nil {
		span.RecordError(err)
		logger.Error("Error while debugging pod %s/%s: %v", namespace, name, err)
		api.WriteError(w, api.FromDiagnosisError(err, api.Target{Resource: "pod", Namespace: namespace, Name: name}))
		return
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	_ = api.WriteResult(w, result)
}

// HandlePods diagnoses every pod in {namespace}
func (h *PodHandler) HandlePods(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	ctx, span := h.tracer.Start(r.Context(), "api.debug_pods",
		trace.WithAttributes(attribute.String("namespace", namespace)))
	defer span.End()

	if err := h.validator.ValidateNamespace(namespace); err != nil {
		api.WriteError(w, err)
		return
	}

	logger := h.logger.WithContext(ctx)
	logger.Info("Received bulk debug request for all pods in namespace: %s", namespace)

	result, err := h.diagnoser.DebugPods(ctx, namespace)
	if err != nil {
		span.RecordError(err)
		logger.Error("Error while debugging pods in namespace %s: %v", namespace, err)
		api.WriteError(w, api.FromDiagnosisError(err, api.Target{Resource: "pod", Namespace: namespace}))
		return
	}

	span.SetAttributes(
		attribute.Int("total", result.TotalPods),
		attribute.Int("critical", result.CriticalCount),
	)
	_ = api.WriteResult(w, result)
}
