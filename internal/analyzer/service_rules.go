package analyzer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/moolen/kubediagnose/internal/models"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// CoreDNSNamespace is where cluster DNS pods are looked up
	CoreDNSNamespace = "kube-system"
	// CoreDNSSelector selects cluster DNS pods
	CoreDNSSelector = "k8s-app=kube-dns"

	maxLabelSamples = 3
)

// CheckSelectorMismatch reports a service whose selector is missing, empty,
// or matches none of the given pods. The boolean is true in all three cases.
func CheckSelectorMismatch(svc *corev1.Service, pods []corev1.Pod) (Findings, bool) {
	var f Findings
	selector := svc.Spec.Selector

	if selector == nil {
		f.cause(CategorySelectorMismatch, SeverityCritical, "Service has no selector defined")
		f.evidence("Service spec has no selector")
		f.actions("Add a selector to the service that matches target pod labels")
		return f, true
	}
	if len(selector) == 0 {
		f.cause(CategorySelectorMismatch, SeverityCritical, "Service has empty selector")
		f.evidence("Service selector is empty: {}")
		f.actions("Define pod labels in selector that match your target pods")
		return f, true
	}

	matching := 0
	var samples []string
	for i := range pods {
		pod := &pods[i]
		if pod.Labels == nil {
			continue
		}
		if selectorMatches(selector, pod.Labels) {
			matching++
			continue
		}
		if len(samples) < maxLabelSamples {
			samples = append(samples, "Pod '"+pod.Name+"' labels: "+labels.Set(pod.Labels).String())
		}
	}

	if matching > 0 {
		return f, false
	}

	f.cause(CategorySelectorMismatch, SeverityCritical, "Service selector does not match any pods")
	f.evidence("Service selector: %s", labels.Set(selector).String())
	f.evidence("Total pods in namespace: %d", len(pods))
	f.evidence("Matching pods: 0")
	f.Evidence = append(f.Evidence, samples...)
	f.actions(
		"Verify the service selector labels match pod labels",
		"Use 'kubectl get pods --show-labels' to see pod labels",
		"Update service selector or pod labels to match",
	)
	return f, true
}

// CheckEndpoints summarizes the endpoints of a service. A nil endpoints
// object is treated like one without subsets. The returned info is never nil.
func CheckEndpoints(endpoints *corev1.Endpoints) (Findings, *models.EndpointInfo) {
	var f Findings
	info := &models.EndpointInfo{Addresses: []string{}}

	if endpoints == nil || len(endpoints.Subsets) == 0 {
		f.cause(CategoryEndpoints, SeverityCritical, "Service has no endpoints")
		f.evidence("No endpoint subsets found for this service")
		f.actions(
			"Ensure pods matching the service selector are running",
			"Check if pods are in Ready state",
			"Verify service selector matches pod labels",
		)
		return f, info
	}

	for _, subset := range endpoints.Subsets {
		for _, addr := range subset.Addresses {
			info.ReadyEndpoints++
			info.Addresses = append(info.Addresses, addr.IP+" (Ready)")
		}
		for _, addr := range subset.NotReadyAddresses {
			info.NotReadyEndpoints++
			info.Addresses = append(info.Addresses, addr.IP+" (NotReady)")
		}
	}

	if info.ReadyEndpoints == 0 && info.NotReadyEndpoints > 0 {
		f.cause(CategoryEndpoints, SeverityWarning, "Service has endpoints but none are ready")
		f.evidence("Ready endpoints: 0")
		f.evidence("Not ready endpoints: %d", info.NotReadyEndpoints)
		f.actions(
			"Check pod readiness probes",
			"Ensure pods are healthy and passing readiness checks",
		)
	}

	return f, info
}

// CheckPortMismatch compares every service target port with the container
// ports declared by the matching pods. Named target ports cannot be resolved
// without a lookup and only produce an informational evidence line.
func CheckPortMismatch(svc *corev1.Service, matchingPods []corev1.Pod) Findings {
	var f Findings
	if len(svc.Spec.Ports) == 0 {
		return f
	}

	containerPorts := make(map[int32]struct{})
	for i := range matchingPods {
		for _, c := range matchingPods[i].Spec.Containers {
			for _, p := range c.Ports {
				containerPorts[p.ContainerPort] = struct{}{}
			}
		}
	}

	if len(containerPorts) == 0 && len(matchingPods) > 0 {
		f.evidence("Warning: No container ports explicitly defined in pods")
		f.actions("Consider explicitly defining containerPort in pod spec for clarity")
	}

	for _, sp := range svc.Spec.Ports {
		if sp.TargetPort.Type == intstr.String {
			f.evidence("Service uses named port '%s' - ensure pod has matching port name", sp.TargetPort.StrVal)
			continue
		}

		target := sp.TargetPort.IntVal
		if target == 0 {
			target = sp.Port
		}

		if len(containerPorts) == 0 {
			continue
		}
		if _, ok := containerPorts[target]; ok {
			continue
		}

		f.cause(CategoryPortMismatch, SeverityWarning, "Service targetPort %d may not match any container port", target)
		f.evidence("Service port %d -> targetPort %d", sp.Port, target)
		f.evidence("Container ports found: %s", formatPortSet(containerPorts))
		f.actions(
			"Verify service targetPort matches container port",
			"Update service targetPort to match actual container port",
		)
	}

	return f
}

// CheckCoreDNS verifies that cluster DNS is running. The boolean is false
// when no DNS pod exists or none is in the Running phase.
func CheckCoreDNS(dnsPods []corev1.Pod) (Findings, bool) {
	var f Findings

	if len(dnsPods) == 0 {
		f.cause(CategoryCoreDNS, SeverityCritical, "CoreDNS pods not found in kube-system namespace")
		f.evidence("No pods with label 'k8s-app=kube-dns' found in kube-system")
		f.actions(
			"Check CoreDNS deployment: kubectl get deployment coredns -n kube-system",
			"Verify DNS is configured correctly in the cluster",
		)
		return f, false
	}

	running := 0
	for i := range dnsPods {
		if dnsPods[i].Status.Phase == corev1.PodRunning {
			running++
		}
	}

	if running == 0 {
		f.cause(CategoryCoreDNS, SeverityCritical, "CoreDNS pods exist but none are running")
		f.evidence("CoreDNS pods found: %d", len(dnsPods))
		f.evidence("Running CoreDNS pods: 0")
		f.actions(
			"Check CoreDNS pod status: kubectl get pods -n kube-system -l k8s-app=kube-dns",
			"Check CoreDNS logs: kubectl logs -n kube-system -l k8s-app=kube-dns",
		)
		return f, false
	}

	f.evidence("CoreDNS is running (%d pod(s))", running)
	return f, true
}

// MatchingPods returns the pods selected by the service. A service without
// a selector selects nothing; an empty selector selects every labelled pod.
func MatchingPods(svc *corev1.Service, pods []corev1.Pod) []corev1.Pod {
	selector := svc.Spec.Selector
	if selector == nil {
		return nil
	}
	var matching []corev1.Pod
	for i := range pods {
		if pods[i].Labels == nil {
			continue
		}
		if selectorMatches(selector, pods[i].Labels) {
			matching = append(matching, pods[i])
		}
	}
	return matching
}

// BuildServicePorts projects the service ports. Target ports are only set
// when numeric, node ports only when allocated.
func BuildServicePorts(svc *corev1.Service) []models.ServicePort {
	ports := make([]models.ServicePort, 0, len(svc.Spec.Ports))
	for _, sp := range svc.Spec.Ports {
		port := models.ServicePort{
			Name:     sp.Name,
			Protocol: string(sp.Protocol),
			Port:     int(sp.Port),
		}
		if sp.TargetPort.Type == intstr.Int && sp.TargetPort.IntVal != 0 {
			target := int(sp.TargetPort.IntVal)
			port.TargetPort = &target
		}
		if sp.NodePort != 0 {
			nodePort := int(sp.NodePort)
			port.NodePort = &nodePort
		}
		ports = append(ports, port)
	}
	return ports
}

// selectorMatches is a subset test: every selector key must be present in
// the pod labels with an equal value. Extra pod labels are ignored.
func selectorMatches(selector, podLabels map[string]string) bool {
	return labels.SelectorFromSet(selector).Matches(labels.Set(podLabels))
}

func formatPortSet(ports map[int32]struct{}) string {
	sorted := make([]int, 0, len(ports))
	for p := range ports {
		sorted = append(sorted, int(p))
	}
	sort.Ints(sorted)

	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, strconv.Itoa(p))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
