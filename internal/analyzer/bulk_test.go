package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/moolen/kubediagnose/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func newTestBulkAnalyzer(concurrency int) *BulkAnalyzer {
	b := NewBulkAnalyzer(concurrency)
	b.now = fixedNow
	return b
}

func podNamed(name string) corev1.Pod {
	return corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"}}
}

func podResult(name string, status models.Status) *models.PodDiagnosticResult {
	return &models.PodDiagnosticResult{ResourceName: name, Namespace: "default", Status: status}
}

func TestNewBulkAnalyzer_Concurrency(t *testing.T) {
	assert.Equal(t, DefaultBulkConcurrency, NewBulkAnalyzer(0).concurrency)
	assert.Equal(t, DefaultBulkConcurrency, NewBulkAnalyzer(-3).concurrency)
	assert.Equal(t, 1, NewBulkAnalyzer(1).concurrency)
}

func TestBulkAnalyzer_Pods_FailureIsolation(t *testing.T) {
	pods := []corev1.Pod{podNamed("p1"), podNamed("p2"), podNamed("p3")}

	bulk := newTestBulkAnalyzer(2).Pods(context.Background(), "default", pods,
		func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
			if pod.Name == "p2" {
				return nil, errors.New("boom")
			}
			return podResult(pod.Name, models.StatusHealthy), nil
		})

	require.Len(t, bulk.Results, 3)
	assert.Equal(t, 3, bulk.TotalPods)
	assert.Equal(t, 1, bulk.CriticalCount)
	assert.Equal(t, 2, bulk.HealthyCount)

	failed := bulk.Results[0]
	assert.Equal(t, "p2", failed.ResourceName)
	assert.Equal(t, models.StatusCritical, failed.Status)
	assert.Equal(t, "Unknown", failed.Phase)
	assert.Equal(t, []string{"Failed to analyze pod: boom"}, failed.ProbableCauses)
	assert.Equal(t, []string{"Analysis error occurred"}, failed.Evidence)
	assert.Equal(t, []string{"Check pod manually using kubectl describe pod p2"}, failed.SuggestedActions)
	assert.Equal(t, 1, failed.Summary.IssueCount)
	assert.Equal(t, models.StatusCritical, bulk.Summary.OverallHealth)
}

func TestBulkAnalyzer_Pods_PanicBecomesCriticalResult(t *testing.T) {
	pods := []corev1.Pod{podNamed("p1"), podNamed("p2")}

	bulk := newTestBulkAnalyzer(1).Pods(context.Background(), "default", pods,
		func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
			if pod.Name == "p1" {
				panic("nil map")
			}
			return podResult(pod.Name, models.StatusHealthy), nil
		})

	require.Len(t, bulk.Results, 2)
	assert.Equal(t, "p1", bulk.Results[0].ResourceName)
	assert.Equal(t, []string{"Failed to analyze pod: panic during analysis: nil map"}, bulk.Results[0].ProbableCauses)
}

func TestBulkAnalyzer_OnItemFailure(t *testing.T) {
	var podFailures, serviceFailures int32
	b := newTestBulkAnalyzer(2)
	b.OnItemFailure(func(resource string) {
		switch resource {
		case "pod":
			atomic.AddInt32(&podFailures, 1)
		case "service":
			atomic.AddInt32(&serviceFailures, 1)
		}
	})

	pods := []corev1.Pod{podNamed("p1"), podNamed("p2"), podNamed("p3")}
	b.Pods(context.Background(), "default", pods,
		func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
			switch pod.Name {
			case "p1":
				panic("nil map")
			case "p2":
				return nil, errors.New("boom")
			}
			return podResult(pod.Name, models.StatusHealthy), nil
		})

	services := []corev1.Service{*newService("ok", map[string]string{"app": "ok"}), *newService("bad", map[string]string{"app": "bad"})}
	b.Services(context.Background(), "default", services,
		func(_ context.Context, svc *corev1.Service) (*models.ServiceDiagnosticResult, error) {
			if svc.Name == "bad" {
				return nil, errors.New("analysis failed")
			}
			return &models.ServiceDiagnosticResult{ResourceName: svc.Name, Status: models.StatusHealthy}, nil
		})

	assert.Equal(t, int32(2), atomic.LoadInt32(&podFailures))
	assert.Equal(t, int32(1), atomic.LoadInt32(&serviceFailures))
}

func TestBulkAnalyzer_Pods_StableSeverityOrder(t *testing.T) {
	statuses := map[string]models.Status{
		"a": models.StatusHealthy,
		"b": models.StatusWarning,
		"c": models.StatusCritical,
		"d": models.StatusCompleted,
		"e": models.StatusCritical,
		"f": models.StatusUnknown,
		"g": models.StatusWarning,
	}
	var pods []corev1.Pod
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		pods = append(pods, podNamed(name))
	}

	bulk := newTestBulkAnalyzer(4).Pods(context.Background(), "default", pods,
		func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
			return podResult(pod.Name, statuses[pod.Name]), nil
		})

	var order []string
	for _, r := range bulk.Results {
		order = append(order, r.ResourceName)
	}
	assert.Equal(t, []string{"c", "e", "b", "f", "g", "a", "d"}, order)
	assert.Equal(t, 2, bulk.CriticalCount)
	assert.Equal(t, 3, bulk.WarningCount)
	assert.Equal(t, 2, bulk.HealthyCount)
	assert.Equal(t, bulk.TotalPods, bulk.CriticalCount+bulk.WarningCount+bulk.HealthyCount)
	assert.Equal(t, "Namespace 'default': 7 pods analyzed - 2 critical, 3 warning, 2 healthy.", bulk.Summary.Message)
}

func TestBulkAnalyzer_Pods_Summaries(t *testing.T) {
	healthy := func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
		return podResult(pod.Name, models.StatusHealthy), nil
	}

	t.Run("empty namespace", func(t *testing.T) {
		bulk := newTestBulkAnalyzer(2).Pods(context.Background(), "empty", nil, healthy)

		assert.Equal(t, 0, bulk.TotalPods)
		assert.NotNil(t, bulk.Results)
		assert.Equal(t, models.StatusHealthy, bulk.Summary.OverallHealth)
		assert.Equal(t, "No pods found in namespace 'empty'.", bulk.Summary.Message)
		assert.Equal(t, models.ResourceTypePodsBulk, bulk.Summary.ResourceType)
	})

	t.Run("all healthy", func(t *testing.T) {
		bulk := newTestBulkAnalyzer(2).Pods(context.Background(), "default",
			[]corev1.Pod{podNamed("a"), podNamed("b")}, healthy)

		assert.Equal(t, "All 2 pods in namespace 'default' are healthy.", bulk.Summary.Message)
		assert.Equal(t, "2024-01-01T12:00:00Z", bulk.Summary.DiagnosticTime)
	})
}

func TestBulkAnalyzer_Pods_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	var pods []corev1.Pod
	for i := 0; i < 20; i++ {
		pods = append(pods, podNamed(string(rune('a'+i))))
	}

	newTestBulkAnalyzer(3).Pods(context.Background(), "default", pods,
		func(_ context.Context, pod *corev1.Pod) (*models.PodDiagnosticResult, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			defer atomic.AddInt32(&inFlight, -1)
			return podResult(pod.Name, models.StatusHealthy), nil
		})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestBulkAnalyzer_Services(t *testing.T) {
	services := []corev1.Service{
		*newService("ok", map[string]string{"app": "ok"}),
		*newService("broken", map[string]string{"app": "broken"}),
		*newService("degraded", map[string]string{"app": "degraded"}),
	}

	bulk := newTestBulkAnalyzer(2).Services(context.Background(), "default", services,
		func(_ context.Context, svc *corev1.Service) (*models.ServiceDiagnosticResult, error) {
			switch svc.Name {
			case "broken":
				return nil, errors.New("endpoints lookup failed")
			case "degraded":
				return &models.ServiceDiagnosticResult{ResourceName: svc.Name, Status: models.StatusWarning}, nil
			}
			return &models.ServiceDiagnosticResult{ResourceName: svc.Name, Status: models.StatusHealthy}, nil
		})

	require.Len(t, bulk.Results, 3)
	assert.Equal(t, []string{"broken", "degraded", "ok"}, []string{
		bulk.Results[0].ResourceName, bulk.Results[1].ResourceName, bulk.Results[2].ResourceName,
	})
	assert.Equal(t, 3, bulk.TotalServices)
	assert.Equal(t, 1, bulk.CriticalCount)
	assert.Equal(t, 1, bulk.WarningCount)
	assert.Equal(t, 1, bulk.HealthyCount)

	failed := bulk.Results[0]
	assert.Equal(t, models.StatusCritical, failed.Status)
	assert.Equal(t, "ClusterIP", failed.ServiceType)
	assert.Equal(t, map[string]string{"app": "broken"}, failed.Selector)
	assert.True(t, failed.CoreDNSExists)
	assert.Equal(t, []string{"Failed to analyze service: endpoints lookup failed"}, failed.ProbableCauses)
	assert.Equal(t, models.ResourceTypeServicesBulk, bulk.Summary.ResourceType)
}

func TestServiceRank(t *testing.T) {
	assert.Equal(t, 0, serviceRank(models.StatusCritical))
	assert.Equal(t, 1, serviceRank(models.StatusWarning))
	assert.Equal(t, 1, serviceRank(models.StatusCompleted))
	assert.Equal(t, 2, serviceRank(models.StatusHealthy))
}
