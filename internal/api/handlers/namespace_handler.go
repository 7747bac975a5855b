package handlers

import (
	"net/http"

	"github.com/moolen/kubediagnose/internal/api"
	"github.com/moolen/kubediagnose/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NamespaceHandler serves /api/namespaces
type NamespaceHandler struct {
	diagnoser Diagnoser
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewNamespaceHandler creates a new namespace handler
func NewNamespaceHandler(diagnoser Diagnoser, logger *logging.Logger, tracer trace.Tracer) *NamespaceHandler {
	return &NamespaceHandler{diagnoser: diagnoser, logger: logger, tracer: tracer}
}

// Handle lists namespace names
func (h *NamespaceHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "api.list_namespaces")
	defer span.End()

	result, err := h.diagnoser.ListNamespaces(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.WithContext(ctx).Error("Error while listing namespaces: %v", err)
		api.WriteError(w, api.FromNamespaceListError(err))
		return
	}

	span.SetAttributes(attribute.Int("total", result.Total))
	_ = api.WriteResult(w, result)
}
