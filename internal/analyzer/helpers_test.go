package analyzer

import (
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newPod(name string, phase corev1.PodPhase, statuses ...corev1.ContainerStatus) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status: corev1.PodStatus{
			Phase:             phase,
			ContainerStatuses: statuses,
		},
	}
}

func running(name string, ready bool, restarts int32) corev1.ContainerStatus {
	return corev1.ContainerStatus{
		Name:         name,
		Ready:        ready,
		RestartCount: restarts,
		State:        corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
	}
}

func waiting(name, reason, message string, restarts int32) corev1.ContainerStatus {
	return corev1.ContainerStatus{
		Name:         name,
		Image:        "registry.example.com/app:v1",
		RestartCount: restarts,
		State: corev1.ContainerState{
			Waiting: &corev1.ContainerStateWaiting{Reason: reason, Message: message},
		},
	}
}

func labelledPod(name string, labels map[string]string, ports ...int32) corev1.Pod {
	containerPorts := make([]corev1.ContainerPort, 0, len(ports))
	for _, p := range ports {
		containerPorts = append(containerPorts, corev1.ContainerPort{ContainerPort: p})
	}
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default", Labels: labels},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "app", Ports: containerPorts}},
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func newService(name string, selector map[string]string, ports ...corev1.ServicePort) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector,
			Ports:    ports,
		},
	}
}

func servicePort(port int32, target intstr.IntOrString) corev1.ServicePort {
	return corev1.ServicePort{Name: "http", Protocol: corev1.ProtocolTCP, Port: port, TargetPort: target}
}

func endpoints(ready, notReady int) *corev1.Endpoints {
	subset := corev1.EndpointSubset{}
	for i := 0; i < ready; i++ {
		subset.Addresses = append(subset.Addresses, corev1.EndpointAddress{IP: "10.0.0." + string(rune('1'+i))})
	}
	for i := 0; i < notReady; i++ {
		subset.NotReadyAddresses = append(subset.NotReadyAddresses, corev1.EndpointAddress{IP: "10.0.1." + string(rune('1'+i))})
	}
	return &corev1.Endpoints{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Subsets:    []corev1.EndpointSubset{subset},
	}
}

func dnsPods(phases ...corev1.PodPhase) []corev1.Pod {
	pods := make([]corev1.Pod, 0, len(phases))
	for i, phase := range phases {
		pods = append(pods, corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "coredns-" + string(rune('a'+i)),
				Namespace: CoreDNSNamespace,
				Labels:    map[string]string{"k8s-app": "kube-dns"},
			},
			Status: corev1.PodStatus{Phase: phase},
		})
	}
	return pods
}
