package diagnosis

import (
	"context"
	"time"

	"github.com/moolen/kubediagnose/internal/analyzer"
	"github.com/moolen/kubediagnose/internal/kube"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/metrics"
	"github.com/moolen/kubediagnose/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	corev1 "k8s.io/api/core/v1"
)

const tracerName = "kubediagnose.diagnosis"

// Service fetches cluster state and runs the analyzers over it. Every call
// reads fresh state; nothing is shared between requests.
type Service struct {
	fetcher  kube.Fetcher
	pods     *analyzer.PodAnalyzer
	services *analyzer.ServiceAnalyzer
	bulk     *analyzer.BulkAnalyzer
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *logging.Logger
}

// Option customizes a Service
type Option func(*Service)

// WithMetrics records diagnosis metrics on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithBulkConcurrency bounds the number of resources analyzed in parallel
func WithBulkConcurrency(n int) Option {
	return func(s *Service) { s.bulk = analyzer.NewBulkAnalyzer(n) }
}

// NewService creates a diagnosis service
func NewService(fetcher kube.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		pods:     analyzer.NewPodAnalyzer(),
		services: analyzer.NewServiceAnalyzer(),
		bulk:     analyzer.NewBulkAnalyzer(analyzer.DefaultBulkConcurrency),
		logger:   logging.GetLogger("diagnosis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	s.bulk.OnItemFailure(s.metrics.ObserveBulkFailure)
	return s
}

// DebugPod diagnoses a single pod
func (s *Service) DebugPod(ctx context.Context, namespace, name string) (*models.PodDiagnosticResult, error) {
	ctx, span := s.tracer.Start(ctx, "diagnosis.DebugPod", trace.WithAttributes(
		attribute.String("k8s.namespace", namespace),
		attribute.String("k8s.pod", name),
	))
	defer span.End()
	defer s.metrics.ObserveDuration("debug_pod", time.Now())

	s.logger.InfoWithFields("Debugging pod", logging.Field("namespace", namespace), logging.Field("pod", name))

	pod, err := s.fetcher.GetPod(ctx, namespace, name)
	if err != nil {
		return nil, s.fetchFailed(ctx, span, err)
	}

	result := s.pods.Analyze(pod)
	s.record(span, "pod", result.Status)
	return result, nil
}

// DebugPods diagnoses every pod of a namespace
func (s *Service) DebugPods(ctx context.Context, namespace string) (*models.BulkPodDiagnosticResult, error) {
	ctx, span := s.tracer.Start(ctx, "diagnosis.DebugPods", trace.WithAttributes(
		attribute.String("k8s.namespace", namespace),
	))
	defer span.End()
	defer s.metrics.ObserveDuration("debug_pods", time.Now())

	s.logger.InfoWithFields("Debugging all pods", logging.Field("namespace", namespace))

	pods, err := s.fetcher.ListPods(ctx, namespace)
	if err != nil {
		return nil, s.fetchFailed(ctx, span, err)
	}

	result := s.bulk.Pods(ctx, namespace, pods, func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
		return s.pods.Analyze(pod), nil
	})

	for i := range result.Results {
		s.metrics.ObserveDiagnosis("pod", result.Results[i].Status.String())
	}
	span.SetAttributes(
		attribute.Int("diagnosis.total", result.TotalPods),
		attribute.Int("diagnosis.critical", result.CriticalCount),
		attribute.Int("diagnosis.warning", result.WarningCount),
	)
	return result, nil
}

// DebugService diagnoses a single service. Endpoints, namespace pods and
// CoreDNS pods are auxiliary reads: a failure there is logged and the rules
// run against empty data.
func (s *Service) DebugService(ctx context.Context, namespace, name string) (*models.ServiceDiagnosticResult, error) {
	ctx, span := s.tracer.Start(ctx, "diagnosis.DebugService", trace.WithAttributes(
		attribute.String("k8s.namespace", namespace),
		attribute.String("k8s.service", name),
	))
	defer span.End()
	defer s.metrics.ObserveDuration("debug_service", time.Now())

	s.logger.InfoWithFields("Debugging service", logging.Field("namespace", namespace), logging.Field("service", name))

	svc, err := s.fetcher.GetService(ctx, namespace, name)
	if err != nil {
		return nil, s.fetchFailed(ctx, span, err)
	}

	in := analyzer.ServiceInput{
		Service:       svc,
		Endpoints:     s.endpointsOrNil(ctx, namespace, name),
		NamespacePods: s.podsOrEmpty(ctx, namespace),
		CoreDNSPods:   s.coreDNSPods(ctx),
	}

	result := s.services.Analyze(in)
	s.record(span, "service", result.Status)
	return result, nil
}

// DebugServices diagnoses every service of a namespace. Namespace pods and
// CoreDNS pods are read once and shared by every item.
func (s *Service) DebugServices(ctx context.Context, namespace string) (*models.BulkServiceDiagnosticResult, error) {
	ctx, span := s.tracer.Start(ctx, "diagnosis.DebugServices", trace.WithAttributes(
		attribute.String("k8s.namespace", namespace),
	))
	defer span.End()
	defer s.metrics.ObserveDuration("debug_services", time.Now())

	s.logger.InfoWithFields("Debugging all services", logging.Field("namespace", namespace))

	services, err := s.fetcher.ListServices(ctx, namespace)
	if err != nil {
		return nil, s.fetchFailed(ctx, span, err)
	}

	namespacePods := s.podsOrEmpty(ctx, namespace)
	dnsPods := s.coreDNSPods(ctx)

	result := s.bulk.Services(ctx, namespace, services, func(ctx context.Context, svc *corev1.Service) (*models.ServiceDiagnosticResult, error) {
		return s.services.Analyze(analyzer.ServiceInput{
			Service:       svc,
			Endpoints:     s.endpointsOrNil(ctx, svc.Namespace, svc.Name),
			NamespacePods: namespacePods,
			CoreDNSPods:   dnsPods,
		}), nil
	})

	for i := range result.Results {
		s.metrics.ObserveDiagnosis("service", result.Results[i].Status.String())
	}
	span.SetAttributes(
		attribute.Int("diagnosis.total", result.TotalServices),
		attribute.Int("diagnosis.critical", result.CriticalCount),
		attribute.Int("diagnosis.warning", result.WarningCount),
	)
	return result, nil
}

// ListNamespaces returns the namespace names of the cluster
func (s *Service) ListNamespaces(ctx context.Context) (*models.NamespaceList, error) {
	ctx, span := s.tracer.Start(ctx, "diagnosis.ListNamespaces")
	defer span.End()
	defer s.metrics.ObserveDuration("list_namespaces", time.Now())

	names, err := s.fetcher.ListNamespaces(ctx)
	if err != nil {
		return nil, s.fetchFailed(ctx, span, err)
	}
	span.SetAttributes(attribute.Int("namespaces.total", len(names)))
	return models.NewNamespaceList(names), nil
}

func (s *Service) endpointsOrNil(ctx context.Context, namespace, name string) *corev1.Endpoints {
	ep, err := s.fetcher.GetEndpoints(ctx, namespace, name)
	if err != nil {
		s.observeFetchError(err)
		s.logger.Warn("Could not fetch endpoints for service %s/%s: %v", namespace, name, err)
		return nil
	}
	return ep
}

func (s *Service) podsOrEmpty(ctx context.Context, namespace string) []corev1.Pod {
	pods, err := s.fetcher.ListPods(ctx, namespace)
	if err != nil {
		s.observeFetchError(err)
		s.logger.Warn("Could not list pods in namespace %s: %v", namespace, err)
		return nil
	}
	return pods
}

func (s *Service) coreDNSPods(ctx context.Context) []corev1.Pod {
	pods, err := s.fetcher.ListPodsBySelector(ctx, analyzer.CoreDNSNamespace, analyzer.CoreDNSSelector)
	if err != nil {
		s.observeFetchError(err)
		s.logger.Warn("Could not check CoreDNS status: %v", err)
		return nil
	}
	return pods
}

func (s *Service) record(span trace.Span, resource string, status models.Status) {
	span.SetAttributes(attribute.String("diagnosis.status", status.String()))
	s.metrics.ObserveDiagnosis(resource, status.String())
}

func (s *Service) fetchFailed(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.observeFetchError(err)
	s.logger.WithContext(ctx).Error("Kubernetes API read failed: %v", err)
	return err
}

func (s *Service) observeFetchError(err error) {
	resource := "unknown"
	if fe, ok := kube.AsFetchError(err); ok {
		resource = string(fe.Resource)
	}
	s.metrics.ObserveFetchError(resource, string(kube.Classify(err)))
}
