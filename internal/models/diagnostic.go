package models

// Resource types reported in summaries
const (
	ResourceTypePod          = "Pod"
	ResourceTypeService      = "Service"
	ResourceTypePodsBulk     = "Pods (Bulk)"
	ResourceTypeServicesBulk = "Services (Bulk)"
)

// NoIssuesDetected is the synthetic cause used when no rule produced a finding.
const NoIssuesDetected = "No issues detected"

// Summary is the quick overview attached to every single-resource result.
type Summary struct {
	DiagnosticTime string `json:"diagnosticTime" yaml:"diagnosticTime"`
	ResourceType   string `json:"resourceType" yaml:"resourceType"`
	OverallHealth  Status `json:"overallHealth" yaml:"overallHealth"`
	IssueCount     int    `json:"issueCount" yaml:"issueCount"`
	Message        string `json:"message" yaml:"message"`
}

// ContainerStatus is the per-container projection of a pod's status.
type ContainerStatus struct {
	Name         string `json:"name" yaml:"name"`
	State        string `json:"state" yaml:"state"` // Running, Waiting, Terminated
	Ready        bool   `json:"ready" yaml:"ready"`
	RestartCount int    `json:"restartCount" yaml:"restartCount"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message      string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Container states
const (
	ContainerStateRunning    = "Running"
	ContainerStateWaiting    = "Waiting"
	ContainerStateTerminated = "Terminated"
)

// PodDiagnosticResult is the diagnosis of a single pod.
type PodDiagnosticResult struct {
	Summary           Summary           `json:"summary" yaml:"summary"`
	ResourceName      string            `json:"resourceName" yaml:"resourceName"`
	Namespace         string            `json:"namespace" yaml:"namespace"`
	Status            Status            `json:"status" yaml:"status"`
	Phase             string            `json:"phase" yaml:"phase"`
	RestartCount      int               `json:"restartCount" yaml:"restartCount"`
	ProbableCauses    []string          `json:"probableCauses" yaml:"probableCauses"`
	Evidence          []string          `json:"evidence" yaml:"evidence"`
	SuggestedActions  []string          `json:"suggestedActions" yaml:"suggestedActions"`
	ContainerStatuses []ContainerStatus `json:"containerStatuses" yaml:"containerStatuses"`
}

// ServicePort is the projection of a service port. TargetPort is only set
// when the service declares a numeric target.
type ServicePort struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Protocol   string `json:"protocol" yaml:"protocol"`
	Port       int    `json:"port" yaml:"port"`
	TargetPort *int   `json:"targetPort,omitempty" yaml:"targetPort,omitempty"`
	NodePort   *int   `json:"nodePort,omitempty" yaml:"nodePort,omitempty"`
}

// EndpointInfo summarizes the endpoints backing a service.
type EndpointInfo struct {
	ReadyEndpoints    int      `json:"readyEndpoints" yaml:"readyEndpoints"`
	NotReadyEndpoints int      `json:"notReadyEndpoints" yaml:"notReadyEndpoints"`
	Addresses         []string `json:"addresses" yaml:"addresses"`
}

// ServiceDiagnosticResult is the diagnosis of a single service.
type ServiceDiagnosticResult struct {
	Summary          Summary           `json:"summary" yaml:"summary"`
	ResourceName     string            `json:"resourceName" yaml:"resourceName"`
	Namespace        string            `json:"namespace" yaml:"namespace"`
	Status           Status            `json:"status" yaml:"status"`
	ServiceType      string            `json:"serviceType" yaml:"serviceType"`
	Selector         map[string]string `json:"selector" yaml:"selector"`
	Ports            []ServicePort     `json:"ports" yaml:"ports"`
	EndpointInfo     *EndpointInfo     `json:"endpointInfo" yaml:"endpointInfo"`
	CoreDNSExists    bool              `json:"coreDnsExists" yaml:"coreDnsExists"`
	ProbableCauses   []string          `json:"probableCauses" yaml:"probableCauses"`
	Evidence         []string          `json:"evidence" yaml:"evidence"`
	SuggestedActions []string          `json:"suggestedActions" yaml:"suggestedActions"`
}

// BulkSummary is the aggregate overview of a namespace-wide diagnosis.
type BulkSummary struct {
	DiagnosticTime string `json:"diagnosticTime" yaml:"diagnosticTime"`
	ResourceType   string `json:"resourceType" yaml:"resourceType"`
	OverallHealth  Status `json:"overallHealth" yaml:"overallHealth"`
	Message        string `json:"message" yaml:"message"`
}

// BulkPodDiagnosticResult holds the severity-ordered diagnosis of every pod in a namespace.
type BulkPodDiagnosticResult struct {
	Summary       BulkSummary           `json:"summary" yaml:"summary"`
	Namespace     string                `json:"namespace" yaml:"namespace"`
	TotalPods     int                   `json:"totalPods" yaml:"totalPods"`
	CriticalCount int                   `json:"criticalCount" yaml:"criticalCount"`
	WarningCount  int                   `json:"warningCount" yaml:"warningCount"`
	HealthyCount  int                   `json:"healthyCount" yaml:"healthyCount"`
	Results       []PodDiagnosticResult `json:"results" yaml:"results"`
}

// BulkServiceDiagnosticResult holds the severity-ordered diagnosis of every service in a namespace.
type BulkServiceDiagnosticResult struct {
	Summary       BulkSummary               `json:"summary" yaml:"summary"`
	Namespace     string                    `json:"namespace" yaml:"namespace"`
	TotalServices int                       `json:"totalServices" yaml:"totalServices"`
	CriticalCount int                       `json:"criticalCount" yaml:"criticalCount"`
	WarningCount  int                       `json:"warningCount" yaml:"warningCount"`
	HealthyCount  int                       `json:"healthyCount" yaml:"healthyCount"`
	Results       []ServiceDiagnosticResult `json:"results" yaml:"results"`
}

// NamespaceList is the sorted list of namespace names in the cluster.
type NamespaceList struct {
	Total      int      `json:"total" yaml:"total"`
	Namespaces []string `json:"namespaces" yaml:"namespaces"`
}

// NewNamespaceList builds a NamespaceList from already sorted names.
func NewNamespaceList(names []string) *NamespaceList {
	if names == nil {
		names = []string{}
	}
	return &NamespaceList{Total: len(names), Namespaces: names}
}
