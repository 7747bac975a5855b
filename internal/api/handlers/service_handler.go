package handlers

import (
	"net/http"

	"github.com/moolen/kubediagnose/internal/api"
	"github.com/moolen/kubediagnose/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ServiceHandler serves /api/debug/service and /api/debug/services
type ServiceHandler struct {
	diagnoser Diagnoser
	logger    *logging.Logger
	validator *api.Validator
	tracer    trace.Tracer
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(diagnoser Diagnoser, logger *logging.Logger, tracer trace.Tracer) *ServiceHandler {
	return &ServiceHandler{
		diagnoser: diagnoser,
		logger:    logger,
		validator: api.NewValidator(),
		tracer:    tracer,
	}
}

// HandleService diagnoses {namespace}/{serviceName}
func (h *ServiceHandler) HandleService(w http.ResponseWriter, r *http.Request) {
	namespace, name := r.PathValue("namespace"), r.PathValue("serviceName")

	ctx, span := h.tracer.Start(r.Context(), "api.debug_service",
		trace.WithAttributes(attribute.String("namespace", namespace), attribute.String("service", name)))
	defer span.End()

	if err := h.validator.ValidateNamespace(namespace); err != nil {
		api.WriteError(w, err)
		return
	}
	if err := h.validator.ValidateName("service", name); err != nil {
		api.WriteError(w, err)
		return
	}

	logger := h.logger.WithContext(ctx)
	logger.Info("Received debug request for service: %s/%s", namespace, name)

	result, err := h.diagnoser.DebugService(ctx, namespace, name)
	if err != nil {
		span.RecordError(err)
		logger.Error("Error while debugging service %s/%s: %v", namespace, name, err)
		api.WriteError(w, api.FromDiagnosisError(err, api.Target{Resource: "service", Namespace: namespace, Name: name}))
		return
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	_ = api.WriteResult(w, result)
}

// HandleServices diagnoses every service in {namespace}
func (h *ServiceHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	ctx, span := h.tracer.Start(r.Context(), "api.debug_services",
		trace.WithAttributes(attribute.String("namespace", namespace)))
	defer span.End()

	if err := h.validator.ValidateNamespace(namespace); err != nil {
		api.WriteError(w, err)
		return
	}

	logger := h.logger.WithContext(ctx)
	logger.Info("Received bulk debug request for all services in namespace: %s", namespace)

	result, err := h.diagnoser.DebugServices(ctx, namespace)
	if err != nil {
		span.RecordError(err)
		logger.Error("Error while debugging services in namespace %s: %v", namespace, err)
		api.WriteError(w, api.FromDiagnosisError(err, api.Target{Resource: "service", Namespace: namespace}))
		return
	}

	span.SetAttributes(
		attribute.Int("total", result.TotalServices),
		attribute.Int("critical", result.CriticalCount),
	)
	_ = api.WriteResult(w, result)
}
