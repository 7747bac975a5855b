package analyzer

import (
	"strings"
	"time"

	"github.com/moolen/kubediagnose/internal/models"
	corev1 "k8s.io/api/core/v1"
)

// HighRestartThreshold is the restart count at which a container is reported.
const HighRestartThreshold = 5

// Exit code of a container killed with SIGKILL, which is what the kubelet
// sends after a failed liveness probe.
const exitCodeSIGKILL = 137

const (
	reasonCrashLoopBackOff = "CrashLoopBackOff"
	reasonImagePullBackOff = "ImagePullBackOff"
	reasonErrImagePull     = "ErrImagePull"
	reasonOOMKilled        = "OOMKilled"
)

// CheckCrashLoopBackOff reports every container waiting in CrashLoopBackOff.
func CheckCrashLoopBackOff(pod *corev1.Pod) Findings {
	var f Findings
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		waiting := cs.State.Waiting
		if waiting == nil || waiting.Reason != reasonCrashLoopBackOff {
			continue
		}

		f.cause(CategoryCrashLoopBackOff, SeverityCritical, "Container '%s' is in CrashLoopBackOff", cs.Name)
		f.evidence("Container state: Waiting, Reason: CrashLoopBackOff")
		f.evidence("Message: %s", messageOrDefault(waiting.Message))
		f.evidence("Restart count: %d", cs.RestartCount)
		f.actions(
			"Check container logs: kubectl logs "+pod.Name+" -c "+cs.Name+" --previous",
			"Review application startup logic and exit codes",
			"Verify environment variables and configuration",
			"Check if required dependencies or services are available",
		)
	}
	return f
}

// CheckImagePullErrors reports every container waiting in ImagePullBackOff or ErrImagePull.
func CheckImagePullErrors(pod *corev1.Pod) Findings {
	var f Findings
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		waiting := cs.State.Waiting
		if waiting == nil {
			continue
		}
		if waiting.Reason != reasonImagePullBackOff && waiting.Reason != reasonErrImagePull {
			continue
		}

		f.cause(CategoryImagePull, SeverityCritical, "Container '%s' cannot pull image: %s", cs.Name, waiting.Reason)
		f.evidence("Container state: Waiting, Reason: %s", waiting.Reason)
		f.evidence("Message: %s", messageOrDefault(waiting.Message))
		f.evidence("Image: %s", cs.Image)
		f.actions(
			"Verify the image name and tag are correct",
			"Check if the image exists in the registry",
			"Ensure image pull secrets are configured if using private registry",
			"Verify network connectivity to the container registry",
		)
	}
	return f
}

// CheckOOMKilled inspects the last and the current terminated state of every
// container independently. Both can fire for the same container.
func CheckOOMKilled(pod *corev1.Pod) Findings {
	var f Findings
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]

		if last := cs.LastTerminationState.Terminated; last != nil && last.Reason == reasonOOMKilled {
			finishedAt := "Unknown"
			if !last.FinishedAt.IsZero() {
				finishedAt = last.FinishedAt.UTC().Format(time.RFC3339)
			}
			f.cause(CategoryOOMKilled, SeverityCritical, "Container '%s' was OOMKilled (Out of Memory)", cs.Name)
			f.evidence("Last termination reason: OOMKilled")
			f.evidence("Exit code: %d", last.ExitCode)
			f.evidence("Finished at: %s", finishedAt)
			f.actions(
				"Increase memory limits in pod spec",
				"Profile application memory usage to find leaks",
				"Optimize application memory consumption",
				"Consider using vertical pod autoscaler",
			)
		}

		if current := cs.State.Terminated; current != nil && current.Reason == reasonOOMKilled {
			f.cause(CategoryOOMKilled, SeverityCritical, "Container '%s' is currently OOMKilled", cs.Name)
			f.evidence("Current termination reason: OOMKilled")
			f.evidence("Exit code: %d", current.ExitCode)
			f.actions(
				"Increase memory limits in pod spec",
				"Profile application memory usage",
			)
		}
	}
	return f
}

// CheckProbeFailures applies two heuristics: a Ready=False condition whose
// reason or message mentions a probe, and a not-ready container whose last
// termination was a SIGKILL.
func CheckProbeFailures(pod *corev1.Pod) Findings {
	var f Findings

	for _, cond := range pod.Status.Conditions {
		if cond.Type != corev1.PodReady || cond.Status != corev1.ConditionFalse || cond.Reason == "" {
			continue
		}
		if !strings.Contains(cond.Reason, "Probe") && !strings.Contains(cond.Message, "probe") {
			continue
		}

		f.cause(CategoryProbeFailure, SeverityWarning, "Readiness probe is failing")
		f.evidence("Condition: Ready=False, Reason: %s", cond.Reason)
		f.evidence("Message: %s", messageOrDefault(cond.Message))
		f.actions(
			"Check the readiness probe configuration",
			"Verify the probe endpoint/command is working",
			"Increase probe timeout or failure threshold if needed",
		)
	}

	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		if cs.RestartCount == 0 || cs.Ready {
			continue
		}
		last := cs.LastTerminationState.Terminated
		if last == nil || last.ExitCode != exitCodeSIGKILL {
			continue
		}

		f.cause(CategoryProbeFailure, SeverityWarning, "Container '%s' may be killed by liveness probe (exit code 137)", cs.Name)
		f.evidence("Last termination exit code: 137 (SIGKILL)")
		f.evidence("Container restart count: %d", cs.RestartCount)
		f.actions(
			"Review liveness probe configuration",
			"Increase initialDelaySeconds if application needs more startup time",
			"Check application health endpoint response time",
		)
	}

	return f
}

// CheckHighRestarts reports containers at or above HighRestartThreshold and
// returns the restart total across all containers, whether or not any of
// them crossed the threshold.
func CheckHighRestarts(pod *corev1.Pod) (Findings, int) {
	var f Findings
	total := 0
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		restarts := int(cs.RestartCount)
		total += restarts

		if restarts < HighRestartThreshold {
			continue
		}
		f.cause(CategoryHighRestarts, SeverityWarning, "Container '%s' has high restart count: %d", cs.Name, restarts)
		f.evidence("Container '%s' restart count: %d", cs.Name, restarts)
		f.evidence("Ready status: %t", cs.Ready)
		f.actions(
			"Check previous container logs: kubectl logs "+pod.Name+" -c "+cs.Name+" --previous",
			"Review application stability and error handling",
			"Check resource limits (CPU/Memory)",
		)
	}
	return f, total
}

// BuildContainerStatuses projects the raw container statuses. Reason and
// message are only carried for Waiting and Terminated containers.
func BuildContainerStatuses(pod *corev1.Pod) []models.ContainerStatus {
	statuses := make([]models.ContainerStatus, 0, len(pod.Status.ContainerStatuses))
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		status := models.ContainerStatus{
			Name:         cs.Name,
			Ready:        cs.Ready,
			RestartCount: int(cs.RestartCount),
		}

		switch {
		case cs.State.Running != nil:
			status.State = models.ContainerStateRunning
		case cs.State.Waiting != nil:
			status.State = models.ContainerStateWaiting
			status.Reason = cs.State.Waiting.Reason
			status.Message = cs.State.Waiting.Message
		case cs.State.Terminated != nil:
			status.State = models.ContainerStateTerminated
			status.Reason = cs.State.Terminated.Reason
			status.Message = cs.State.Terminated.Message
		}

		statuses = append(statuses, status)
	}
	return statuses
}
