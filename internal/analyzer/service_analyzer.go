package analyzer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/models"
	corev1 "k8s.io/api/core/v1"
)

// ServiceInput bundles a service snapshot with the auxiliary data its rules
// need. Endpoints may be nil.
type ServiceInput struct {
	Service       *corev1.Service
	Endpoints     *corev1.Endpoints
	NamespacePods []corev1.Pod
	CoreDNSPods   []corev1.Pod
}

// ServiceAnalyzer runs the service rule set and assembles the result.
type ServiceAnalyzer struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewServiceAnalyzer creates a service analyzer
func NewServiceAnalyzer() *ServiceAnalyzer {
	return &ServiceAnalyzer{
		logger: logging.GetLogger("analyzer.service"),
		now:    time.Now,
	}
}

// serviceVerdict carries the rule outputs that drive status derivation.
type serviceVerdict struct {
	selectorMismatch bool
	coreDNSRunning   bool
	endpoints        *models.EndpointInfo
	findings         Findings
}

// Analyze diagnoses a service. None of the inputs are modified.
func (a *ServiceAnalyzer) Analyze(in ServiceInput) *models.ServiceDiagnosticResult {
	svc := in.Service
	a.logger.Debug("Analyzing service: %s/%s", svc.Namespace, svc.Name)

	serviceType := string(svc.Spec.Type)
	if serviceType == "" {
		serviceType = phaseUnknown
	}

	var v serviceVerdict

	selectorFindings, mismatch := CheckSelectorMismatch(svc, in.NamespacePods)
	v.selectorMismatch = mismatch
	v.findings.Merge(selectorFindings)

	endpointFindings, info := CheckEndpoints(in.Endpoints)
	v.endpoints = info
	v.findings.Merge(endpointFindings)

	if matching := MatchingPods(svc, in.NamespacePods); len(matching) > 0 {
		v.findings.Merge(CheckPortMismatch(svc, matching))
	}

	dnsFindings, dnsRunning := CheckCoreDNS(in.CoreDNSPods)
	v.coreDNSRunning = dnsRunning
	v.findings.Merge(dnsFindings)

	status := v.status()

	noIssues := v.findings.Empty()
	causes := v.findings.CauseTexts()
	evidence := v.findings.Evidence
	actions := v.findings.Actions
	if noIssues {
		causes = []string{models.NoIssuesDetected}
		evidence = append(evidence,
			"Service type: "+serviceType,
			"Ready endpoints: "+strconv.Itoa(info.ReadyEndpoints),
			"CoreDNS is operational",
		)
		actions = append(actions, "No action required - service appears to be configured correctly")
	}

	result := &models.ServiceDiagnosticResult{
		ResourceName:     svc.Name,
		Namespace:        svc.Namespace,
		Status:           status,
		ServiceType:      serviceType,
		Selector:         svc.Spec.Selector,
		Ports:            BuildServicePorts(svc),
		EndpointInfo:     info,
		CoreDNSExists:    dnsRunning,
		ProbableCauses:   causes,
		Evidence:         orEmpty(evidence),
		SuggestedActions: orEmpty(actions),
	}
	result.Summary = a.buildSummary(result, noIssues)

	a.logger.Debug("Service analysis complete. Found %d issues", result.Summary.IssueCount)
	return result
}

// status applies the service precedence, first match wins.
func (v serviceVerdict) status() models.Status {
	switch {
	case v.selectorMismatch:
		return models.StatusCritical
	case !v.coreDNSRunning:
		return models.StatusCritical
	case v.endpoints.ReadyEndpoints == 0 && v.endpoints.NotReadyEndpoints == 0:
		return models.StatusCritical
	case v.endpoints.ReadyEndpoints == 0 && v.endpoints.NotReadyEndpoints > 0:
		return models.StatusWarning
	case v.findings.HasCategory(CategorySelectorMismatch, CategoryPortMismatch):
		return models.StatusWarning
	case v.findings.Empty():
		return models.StatusHealthy
	default:
		return models.StatusWarning
	}
}

func (a *ServiceAnalyzer) buildSummary(result *models.ServiceDiagnosticResult, noIssues bool) models.Summary {
	issueCount := 0
	if !noIssues {
		issueCount = len(result.ProbableCauses)
	}

	var message string
	if noIssues {
		message = fmt.Sprintf("Service '%s' is healthy with %d ready endpoint(s).",
			result.ResourceName, result.EndpointInfo.ReadyEndpoints)
	} else {
		message = fmt.Sprintf("Service '%s' has %d %s requiring attention. Status: %s",
			result.ResourceName, issueCount, issueWord(issueCount), result.Status)
	}

	return models.Summary{
		DiagnosticTime: a.now().Format(time.RFC3339),
		ResourceType:   models.ResourceTypeService,
		OverallHealth:  result.Status,
		IssueCount:     issueCount,
		Message:        message,
	}
}
