package diagnosis

import (
	"context"
	"errors"
	"testing"

	"github.com/moolen/kubediagnose/internal/kube"
	"github.com/moolen/kubediagnose/internal/metrics"
	"github.com/moolen/kubediagnose/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func coreDNS() *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "coredns-1", Namespace: "kube-system", Labels: map[string]string{"k8s-app": "kube-dns"}},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func webPod(name string, ready bool) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default", Labels: map[string]string{"app": "web"}},
		Spec: corev1.PodSpec{Containers: []corev1.Container{{
			Name:  "nginx",
			Ports: []corev1.ContainerPort{{ContainerPort: 8080}},
		}}},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:  "nginx",
				Ready: ready,
				State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
			}},
		},
	}
}

func crashingPod(name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:         "app",
				RestartCount: 3,
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
				},
			}},
		},
	}
}

func webService() *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"app": "web"},
			Ports:    []corev1.ServicePort{{Name: "http", Protocol: corev1.ProtocolTCP, Port: 80, TargetPort: intstr.FromInt(8080)}},
		},
	}
}

func webEndpoints(ready int) *corev1.Endpoints {
	subset := corev1.EndpointSubset{}
	for i := 0; i < ready; i++ {
		subset.Addresses = append(subset.Addresses, corev1.EndpointAddress{IP: "10.0.0.1"})
	}
	return &corev1.Endpoints{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Subsets:    []corev1.EndpointSubset{subset},
	}
}

func newTestService(t *testing.T, clientset *fake.Clientset) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewService(kube.NewClient(clientset), WithMetrics(m), WithBulkConcurrency(2)), m
}

func TestDebugPod(t *testing.T) {
	svc, m := newTestService(t, fake.NewSimpleClientset(crashingPod("api")))

	result, err := svc.DebugPod(context.Background(), "default", "api")

	require.NoError(t, err)
	assert.Equal(t, models.StatusCritical, result.Status)
	assert.Equal(t, 1, result.Summary.IssueCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiagnosesTotal.WithLabelValues("pod", "Critical")))
}

func TestDebugPod_NotFound(t *testing.T) {
	svc, m := newTestService(t, fake.NewSimpleClientset())

	_, err := svc.DebugPod(context.Background(), "default", "missing")

	require.Error(t, err)
	assert.Equal(t, kube.KindNotFound, kube.Classify(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrorsTotal.WithLabelValues("pod", "NotFound")))
}

func TestDebugPods(t *testing.T) {
	svc, _ := newTestService(t, fake.NewSimpleClientset(
		webPod("web-1", true),
		crashingPod("api"),
		webPod("web-2", false),
	))

	result, err := svc.DebugPods(context.Background(), "default")

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalPods)
	assert.Equal(t, 1, result.CriticalCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, 1, result.HealthyCount)
	assert.Equal(t, "api", result.Results[0].ResourceName)
	assert.Equal(t, models.StatusCritical, result.Summary.OverallHealth)
}

func TestDebugPods_ListForbidden(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", errors.New("rbac"))
	})
	svc, _ := newTestService(t, clientset)

	_, err := svc.DebugPods(context.Background(), "restricted")

	assert.Equal(t, kube.KindForbidden, kube.Classify(err))
}

func TestDebugService_Healthy(t *testing.T) {
	svc, _ := newTestService(t, fake.NewSimpleClientset(
		webService(), webEndpoints(2), webPod("web-1", true), coreDNS(),
	))

	result, err := svc.DebugService(context.Background(), "default", "web")

	require.NoError(t, err)
	assert.Equal(t, models.StatusHealthy, result.Status)
	assert.Equal(t, 2, result.EndpointInfo.ReadyEndpoints)
	assert.True(t, result.CoreDNSExists)
}

func TestDebugService_AuxiliaryFailuresDegrade(t *testing.T) {
	clientset := fake.NewSimpleClientset(webService(), webEndpoints(1), webPod("web-1", true), coreDNS())
	clientset.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.GetNamespace() == "kube-system" {
			return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", errors.New("rbac"))
		}
		return false, nil, nil
	})
	svc, _ := newTestService(t, clientset)

	result, err := svc.DebugService(context.Background(), "default", "web")

	require.NoError(t, err)
	assert.False(t, result.CoreDNSExists)
	assert.Equal(t, models.StatusCritical, result.Status)
	assert.Contains(t, result.ProbableCauses, "CoreDNS pods not found in kube-system namespace")
}

func TestDebugService_MissingEndpoints(t *testing.T) {
	svc, _ := newTestService(t, fake.NewSimpleClientset(webService(), webPod("web-1", true), coreDNS()))

	result, err := svc.DebugService(context.Background(), "default", "web")

	require.NoError(t, err)
	assert.Equal(t, models.StatusCritical, result.Status)
	assert.Contains(t, result.ProbableCauses, "Service has no endpoints")
}

func TestDebugServices_EndpointFetchFailureMatchesSingleDiagnosis(t *testing.T) {
	broken := webService()
	broken.Name = "broken"
	clientset := fake.NewSimpleClientset(webService(), broken, webEndpoints(1), webPod("web-1", true), coreDNS())
	clientset.PrependReactor("get", "endpoints", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.(k8stesting.GetAction).GetName() == "broken" {
			return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "endpoints"}, "broken", errors.New("rbac"))
		}
		return false, nil, nil
	})
	svc, m := newTestService(t, clientset)

	bulk, err := svc.DebugServices(context.Background(), "default")
	require.NoError(t, err)
	single, err := svc.DebugService(context.Background(), "default", "broken")
	require.NoError(t, err)

	require.Len(t, bulk.Results, 2)
	fromBulk := bulk.Results[0]
	assert.Equal(t, "broken", fromBulk.ResourceName)
	assert.Equal(t, models.StatusCritical, fromBulk.Status)
	assert.Contains(t, fromBulk.ProbableCauses, "Service has no endpoints")
	assert.Equal(t, single.Status, fromBulk.Status)
	assert.Equal(t, single.ProbableCauses, fromBulk.ProbableCauses)
	assert.Equal(t, single.Evidence, fromBulk.Evidence)
	assert.Equal(t, single.EndpointInfo, fromBulk.EndpointInfo)

	assert.Equal(t, "web", bulk.Results[1].ResourceName)
	assert.Equal(t, models.StatusHealthy, bulk.Results[1].Status)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BulkItemFailuresTotal.WithLabelValues("service")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchErrorsTotal.WithLabelValues("endpoints", "Forbidden")))
}

func TestDebugServices_PrefetchesPodsOnce(t *testing.T) {
	a := webService()
	b := webService()
	b.Name = "web-b"
	clientset := fake.NewSimpleClientset(a, b, webPod("web-1", true), coreDNS())
	lists := 0
	clientset.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		lists++
		return false, nil, nil
	})
	svc, _ := newTestService(t, clientset)

	_, err := svc.DebugServices(context.Background(), "default")

	require.NoError(t, err)
	assert.Equal(t, 2, lists, "one namespace pod list and one CoreDNS list")
}

func TestListNamespaces(t *testing.T) {
	svc, _ := newTestService(t, fake.NewSimpleClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "prod"}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "default"}},
	))

	list, err := svc.ListNamespaces(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, []string{"default", "prod"}, list.Namespaces)
}
