package analyzer

import (
	"fmt"
	"time"

	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/models"
	corev1 "k8s.io/api/core/v1"
)

const phaseUnknown = "Unknown"

// PodRule is a single pod detector.
type PodRule func(pod *corev1.Pod) Findings

// PodRules returns the pod detectors in evaluation order. The restart
// detector is evaluated last by the analyzer because it also yields the
// restart total.
func PodRules() []PodRule {
	return []PodRule{
		CheckCrashLoopBackOff,
		CheckImagePullErrors,
		CheckOOMKilled,
		CheckProbeFailures,
	}
}

// PodAnalyzer runs the pod rule set over one pod and assembles the result.
type PodAnalyzer struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewPodAnalyzer creates a pod analyzer
func NewPodAnalyzer() *PodAnalyzer {
	return &PodAnalyzer{
		logger: logging.GetLogger("analyzer.pod"),
		now:    time.Now,
	}
}

// Analyze diagnoses a pod snapshot. The snapshot is never modified.
func (a *PodAnalyzer) Analyze(pod *corev1.Pod) *models.PodDiagnosticResult {
	a.logger.Debug("Analyzing pod: %s/%s", pod.Namespace, pod.Name)

	phase := phaseUnknown
	if podHasStatus(pod) {
		phase = string(pod.Status.Phase)
	}

	var findings Findings
	for _, rule := range PodRules() {
		findings.Merge(rule(pod))
	}
	restartFindings, totalRestarts := CheckHighRestarts(pod)
	findings.Merge(restartFindings)

	status := DerivePodStatus(pod, findings)

	noIssues := findings.Empty()
	causes := findings.CauseTexts()
	evidence := findings.Evidence
	actions := findings.Actions
	if noIssues {
		causes = []string{models.NoIssuesDetected}
		evidence = []string{"Pod phase: " + phase, "All containers appear healthy"}
		actions = []string{"No action required - pod appears to be running normally"}
	}

	result := &models.PodDiagnosticResult{
		ResourceName:      pod.Name,
		Namespace:         pod.Namespace,
		Status:            status,
		Phase:             phase,
		RestartCount:      totalRestarts,
		ProbableCauses:    causes,
		Evidence:          orEmpty(evidence),
		SuggestedActions:  orEmpty(actions),
		ContainerStatuses: BuildContainerStatuses(pod),
	}
	result.Summary = a.buildSummary(result, noIssues)

	a.logger.Debug("Pod analysis complete. Found %d issues", result.Summary.IssueCount)
	return result
}

func (a *PodAnalyzer) buildSummary(result *models.PodDiagnosticResult, noIssues bool) models.Summary {
	issueCount := 0
	if !noIssues {
		issueCount = len(result.ProbableCauses)
	}

	var message string
	if noIssues {
		message = fmt.Sprintf("Pod '%s' is healthy and running normally.", result.ResourceName)
	} else {
		message = fmt.Sprintf("Pod '%s' has %d %s requiring attention. Status: %s",
			result.ResourceName, issueCount, issueWord(issueCount), result.Status)
	}

	return models.Summary{
		DiagnosticTime: a.now().Format(time.RFC3339),
		ResourceType:   models.ResourceTypePod,
		OverallHealth:  result.Status,
		IssueCount:     issueCount,
		Message:        message,
	}
}

// DerivePodStatus applies the pod status precedence: missing status block,
// critical findings, any finding, then the pod phase.
func DerivePodStatus(pod *corev1.Pod, findings Findings) models.Status {
	if !podHasStatus(pod) {
		return models.StatusUnknown
	}
	if findings.HasSeverity(SeverityCritical) {
		return models.StatusCritical
	}
	if !findings.Empty() {
		return models.StatusWarning
	}

	switch pod.Status.Phase {
	case corev1.PodRunning:
		for _, cs := range pod.Status.ContainerStatuses {
			if !cs.Ready {
				return models.StatusWarning
			}
		}
		return models.StatusHealthy
	case corev1.PodPending:
		return models.StatusWarning
	case corev1.PodSucceeded:
		return models.StatusCompleted
	case corev1.PodFailed:
		return models.StatusCritical
	default:
		return models.StatusUnknown
	}
}

// podHasStatus reports whether the API server populated any status for the
// pod. A zero PodStatus is the Go equivalent of an absent status block.
func podHasStatus(pod *corev1.Pod) bool {
	s := &pod.Status
	return s.Phase != "" ||
		len(s.Conditions) > 0 ||
		len(s.ContainerStatuses) > 0 ||
		len(s.InitContainerStatuses) > 0 ||
		s.StartTime != nil ||
		s.Reason != ""
}
