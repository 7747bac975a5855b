package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/models"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
)

// DefaultBulkConcurrency is the number of resources analyzed in parallel
const DefaultBulkConcurrency = 8

const unknownName = "unknown"

// PodAnalyzeFunc diagnoses one pod of a bulk request
type PodAnalyzeFunc func(ctx context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error)

// ServiceAnalyzeFunc diagnoses one service of a bulk request
type ServiceAnalyzeFunc func(ctx context.Context, svc *corev1.Service) (*models.ServiceDiagnosticResult, error)

// BulkAnalyzer diagnoses every resource of a namespace with per-item failure
// isolation and produces a severity-ordered report.
type BulkAnalyzer struct {
	concurrency int
	logger      *logging.Logger
	now         func() time.Time
	onFailure   func(resource string)
}

// NewBulkAnalyzer creates a bulk analyzer. Concurrency below 1 falls back to
// DefaultBulkConcurrency; a concurrency of 1 analyzes items sequentially.
func NewBulkAnalyzer(concurrency int) *BulkAnalyzer {
	if concurrency < 1 {
		concurrency = DefaultBulkConcurrency
	}
	return &BulkAnalyzer{
		concurrency: concurrency,
		logger:      logging.GetLogger("analyzer.bulk"),
		now:         time.Now,
	}
}

// OnItemFailure registers fn to be called with "pod" or "service" whenever an
// item is degraded to an error result. fn may be called concurrently.
func (b *BulkAnalyzer) OnItemFailure(fn func(resource string)) {
	b.onFailure = fn
}

func (b *BulkAnalyzer) itemFailed(resource string) {
	if b.onFailure != nil {
		b.onFailure(resource)
	}
}

// Pods diagnoses the given pods. A failing item becomes a Critical result;
// the batch always completes.
func (b *BulkAnalyzer) Pods(ctx context.Context, namespace string, pods []corev1.Pod, analyze PodAnalyzeFunc) *models.BulkPodDiagnosticResult {
	results := make([]models.PodDiagnosticResult, len(pods))

	runIsolated(ctx, b.concurrency, len(pods), func(ctx context.Context, i int) error {
		result, err := analyze(ctx, &pods[i])
		if err != nil {
			return err
		}
		results[i] = *result
		return nil
	}, func(i int, err error) {
		b.logger.Warn("Failed to analyze pod %s: %v", nameOrUnknown(pods[i].Name), err)
		results[i] = b.errorPodResult(&pods[i], err)
		b.itemFailed("pod")
	})

	bulk := &models.BulkPodDiagnosticResult{
		Namespace: namespace,
		TotalPods: len(pods),
	}
	for i := range results {
		switch status := results[i].Status; {
		case status == models.StatusCritical:
			bulk.CriticalCount++
		case status.IsHealthy():
			bulk.HealthyCount++
		default:
			bulk.WarningCount++
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Status.Rank() < results[j].Status.Rank()
	})
	bulk.Results = results
	bulk.Summary = b.bulkSummary(models.ResourceTypePodsBulk, "pods", namespace,
		len(pods), bulk.CriticalCount, bulk.WarningCount, bulk.HealthyCount)

	b.logger.Info("Bulk pod analysis complete for namespace: %s. Total: %d, Critical: %d, Warning: %d, Healthy: %d",
		namespace, bulk.TotalPods, bulk.CriticalCount, bulk.WarningCount, bulk.HealthyCount)
	return bulk
}

// Services diagnoses the given services. A failing item becomes a Critical
// result; the batch always completes.
func (b *BulkAnalyzer) Services(ctx context.Context, namespace string, services []corev1.Service, analyze ServiceAnalyzeFunc) *models.BulkServiceDiagnosticResult {
	results := make([]models.ServiceDiagnosticResult, len(services))

	runIsolated(ctx, b.concurrency, len(services), func(ctx context.Context, i int) error {
		result, err := analyze(ctx, &services[i])
		if err != nil {
			return err
		}
		results[i] = *result
		return nil
	}, func(i int, err error) {
		b.logger.Warn("Failed to analyze service %s: %v", nameOrUnknown(services[i].Name), err)
		results[i] = b.errorServiceResult(&services[i], err)
		b.itemFailed("service")
	})

	bulk := &models.BulkServiceDiagnosticResult{
		Namespace:     namespace,
		TotalServices: len(services),
	}
	for i := range results {
		switch results[i].Status {
		case models.StatusCritical:
			bulk.CriticalCount++
		case models.StatusHealthy:
			bulk.HealthyCount++
		default:
			bulk.WarningCount++
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return serviceRank(results[i].Status) < serviceRank(results[j].Status)
	})
	bulk.Results = results
	bulk.Summary = b.bulkSummary(models.ResourceTypeServicesBulk, "services", namespace,
		len(services), bulk.CriticalCount, bulk.WarningCount, bulk.HealthyCount)

	b.logger.Info("Bulk service analysis complete for namespace: %s. Total: %d, Critical: %d, Warning: %d, Healthy: %d",
		namespace, bulk.TotalServices, bulk.CriticalCount, bulk.WarningCount, bulk.HealthyCount)
	return bulk
}

// runIsolated calls work for every index with at most limit calls in flight.
// Errors and panics are handed to onFailure for that index only. Each index
// owns its result slot, so completion order never leaks into the output.
func runIsolated(ctx context.Context, limit, n int, work func(ctx context.Context, i int) error, onFailure func(i int, err error)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := safeCall(gctx, i, work); err != nil {
				onFailure(i, err)
			}
			// never fail the group, one item must not cancel its siblings
			return nil
		})
	}
	_ = g.Wait()
}

func safeCall(ctx context.Context, i int, work func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during analysis: %v", r)
		}
	}()
	return work(ctx, i)
}

// serviceRank orders service results. Only Critical, Warning and Healthy are
// recognized; anything else sorts with warnings.
func serviceRank(s models.Status) int {
	switch s {
	case models.StatusCritical:
		return 0
	case models.StatusHealthy:
		return 2
	default:
		return 1
	}
}

func (b *BulkAnalyzer) errorPodResult(pod *corev1.Pod, err error) models.PodDiagnosticResult {
	name := nameOrUnknown(pod.Name)
	cause := "Failed to analyze pod: " + err.Error()
	return models.PodDiagnosticResult{
		Summary: models.Summary{
			DiagnosticTime: b.now().Format(time.RFC3339),
			ResourceType:   models.ResourceTypePod,
			OverallHealth:  models.StatusCritical,
			IssueCount:     1,
			Message:        cause,
		},
		ResourceName:      name,
		Namespace:         nameOrUnknown(pod.Namespace),
		Status:            models.StatusCritical,
		Phase:             phaseUnknown,
		ProbableCauses:    []string{cause},
		Evidence:          []string{"Analysis error occurred"},
		SuggestedActions:  []string{"Check pod manually using kubectl describe pod " + name},
		ContainerStatuses: []models.ContainerStatus{},
	}
}

func (b *BulkAnalyzer) errorServiceResult(svc *corev1.Service, err error) models.ServiceDiagnosticResult {
	name := nameOrUnknown(svc.Name)
	cause := "Failed to analyze service: " + err.Error()
	serviceType := string(svc.Spec.Type)
	if serviceType == "" {
		serviceType = phaseUnknown
	}
	return models.ServiceDiagnosticResult{
		Summary: models.Summary{
			DiagnosticTime: b.now().Format(time.RFC3339),
			ResourceType:   models.ResourceTypeService,
			OverallHealth:  models.StatusCritical,
			IssueCount:     1,
			Message:        cause,
		},
		ResourceName:     name,
		Namespace:        nameOrUnknown(svc.Namespace),
		Status:           models.StatusCritical,
		ServiceType:      serviceType,
		Selector:         svc.Spec.Selector,
		Ports:            []models.ServicePort{},
		CoreDNSExists:    true,
		ProbableCauses:   []string{cause},
		Evidence:         []string{"Analysis error occurred"},
		SuggestedActions: []string{"Check service manually using kubectl describe service " + name},
	}
}

func (b *BulkAnalyzer) bulkSummary(resourceType, noun, namespace string, total, critical, warning, healthy int) models.BulkSummary {
	var message string
	switch {
	case total == 0:
		message = fmt.Sprintf("No %s found in namespace '%s'.", noun, namespace)
	case critical == 0 && warning == 0:
		message = fmt.Sprintf("All %d %s in namespace '%s' are healthy.", total, noun, namespace)
	default:
		message = fmt.Sprintf("Namespace '%s': %d %s analyzed - %d critical, %d warning, %d healthy.",
			namespace, total, noun, critical, warning, healthy)
	}

	return models.BulkSummary{
		DiagnosticTime: b.now().Format(time.RFC3339),
		ResourceType:   resourceType,
		OverallHealth:  models.WorstOf(critical, warning),
		Message:        message,
	}
}

func nameOrUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}
