package handlers

import (
	"net/http"

	"github.com/moolen/kubediagnose/internal/logging"
	"go.opentelemetry.io/otel/trace"
)

// Route patterns. The server's request metrics are labelled with these.
const (
	RoutePod        = "/api/debug/pod/{namespace}/{podName}"
	RoutePods       = "/api/debug/pods/{namespace}"
	RouteService    = "/api/debug/service/{namespace}/{serviceName}"
	RouteServices   = "/api/debug/services/{namespace}"
	RouteNamespaces = "/api/namespaces"
)

// RegisterHandlers registers the diagnosis endpoints on the given router
func RegisterHandlers(
	router *http.ServeMux,
	diagnoser Diagnoser,
	logger *logging.Logger,
	tracer trace.Tracer,
	withMethod func(string, string, http.HandlerFunc) http.HandlerFunc,
) {
	pods := NewPodHandler(diagnoser, logger, tracer)
	services := NewServiceHandler(diagnoser, logger, tracer)
	namespaces := NewNamespaceHandler(diagnoser, logger, tracer)

	router.HandleFunc(RoutePod, withMethod(http.MethodGet, RoutePod, pods.HandlePod))
	router.HandleFunc(RoutePods, withMethod(http.MethodGet, RoutePods, pods.HandlePods))
	router.HandleFunc(RouteService, withMethod(http.MethodGet, RouteService, services.HandleService))
	router.HandleFunc(RouteServices, withMethod(http.MethodGet, RouteServices, services.HandleServices))
	router.HandleFunc(RouteNamespaces, withMethod(http.MethodGet, RouteNamespaces, namespaces.Handle))
}
