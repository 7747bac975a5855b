package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gosuri/uitable"
	"github.com/moolen/kubediagnose/internal/models"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/labels"
)

// Output formats accepted by -o
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var (
	colorCritical  = lipgloss.Color("#EF4444") // Red
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow/Orange
	colorHealthy   = lipgloss.Color("#10B981") // Green
	colorCompleted = lipgloss.Color("#00D4FF") // Cyan
	colorMuted     = lipgloss.Color("#6B7280") // Gray
)

// printer renders diagnosis results in one of the output formats
type printer struct {
	out    io.Writer
	format string
	color  bool
}

func newPrinter(out io.Writer, format string) (*printer, error) {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("invalid output format %q (must be one of: text, json, yaml)", format)
	}
	return &printer{out: out, format: format, color: isTerminal(out)}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) print(result interface{}) error {
	switch p.format {
	case OutputJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	case OutputYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}

	var text string
	switch r := result.(type) {
	case *models.PodDiagnosticResult:
		text = p.podText(r)
	case *models.BulkPodDiagnosticResult:
		text = p.bulkPodsText(r)
	case *models.ServiceDiagnosticResult:
		text = p.serviceText(r)
	case *models.BulkServiceDiagnosticResult:
		text = p.bulkServicesText(r)
	case *models.NamespaceList:
		text = namespacesText(r)
	default:
		return fmt.Errorf("no text rendering for %T", result)
	}
	_, err := io.WriteString(p.out, text)
	return err
}

func (p *printer) status(s models.Status) string {
	if !p.color {
		return s.String()
	}
	style := lipgloss.NewStyle().Bold(true)
	switch s {
	case models.StatusCritical:
		style = style.Foreground(colorCritical)
	case models.StatusWarning:
		style = style.Foreground(colorWarning)
	case models.StatusHealthy:
		style = style.Foreground(colorHealthy)
	case models.StatusCompleted:
		style = style.Foreground(colorCompleted)
	default:
		style = style.Foreground(colorMuted)
	}
	return style.Render(s.String())
}

func (p *printer) podText(r *models.PodDiagnosticResult) string {
	var b strings.Builder

	header := uitable.New()
	header.AddRow("Pod:", r.Namespace+"/"+r.ResourceName)
	header.AddRow("Status:", p.status(r.Status))
	header.AddRow("Phase:", r.Phase)
	header.AddRow("Restarts:", r.RestartCount)
	header.AddRow("Summary:", r.Summary.Message)
	b.WriteString(header.String())
	b.WriteString("\n")

	if len(r.ContainerStatuses) > 0 {
		b.WriteString("\nContainers:\n")
		table := uitable.New()
		table.AddRow("NAME", "STATE", "READY", "RESTARTS", "REASON")
		for _, c := range r.ContainerStatuses {
			table.AddRow(c.Name, c.State, c.Ready, c.RestartCount, c.Reason)
		}
		b.WriteString(table.String())
		b.WriteString("\n")
	}

	writeFindings(&b, r.ProbableCauses, r.Evidence, r.SuggestedActions)
	return b.String()
}

func (p *printer) serviceText(r *models.ServiceDiagnosticResult) string {
	var b strings.Builder

	header := uitable.New()
	header.AddRow("Service:", r.Namespace+"/"+r.ResourceName)
	header.AddRow("Status:", p.status(r.Status))
	header.AddRow("Type:", r.ServiceType)
	header.AddRow("Selector:", formatSelector(r.Selector))
	if r.EndpointInfo != nil {
		header.AddRow("Endpoints:", fmt.Sprintf("%d ready, %d not ready",
			r.EndpointInfo.ReadyEndpoints, r.EndpointInfo.NotReadyEndpoints))
	} else {
		header.AddRow("Endpoints:", "<none>")
	}
	header.AddRow("CoreDNS:", r.CoreDNSExists)
	header.AddRow("Summary:", r.Summary.Message)
	b.WriteString(header.String())
	b.WriteString("\n")

	if len(r.Ports) > 0 {
		b.WriteString("\nPorts:\n")
		table := uitable.New()
		table.AddRow("NAME", "PROTOCOL", "PORT", "TARGET", "NODEPORT")
		for _, port := range r.Ports {
			table.AddRow(port.Name, port.Protocol, port.Port, optionalInt(port.TargetPort), optionalInt(port.NodePort))
		}
		b.WriteString(table.String())
		b.WriteString("\n")
	}

	writeFindings(&b, r.ProbableCauses, r.Evidence, r.SuggestedActions)
	return b.String()
}

func (p *printer) bulkPodsText(r *models.BulkPodDiagnosticResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Namespace %s: %s (%s)\n\n", r.Namespace, p.status(r.Summary.OverallHealth), r.Summary.Message)
	if len(r.Results) == 0 {
		b.WriteString("No pods found.\n")
		return b.String()
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("POD", "STATUS", "PHASE", "RESTARTS", "PROBABLE CAUSE")
	for _, res := range r.Results {
		table.AddRow(res.ResourceName, p.status(res.Status), res.Phase, res.RestartCount, firstOr(res.ProbableCauses, "-"))
	}
	b.WriteString(table.String())
	b.WriteString("\n")
	return b.String()
}

func (p *printer) bulkServicesText(r *models.BulkServiceDiagnosticResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Namespace %s: %s (%s)\n\n", r.Namespace, p.status(r.Summary.OverallHealth), r.Summary.Message)
	if len(r.Results) == 0 {
		b.WriteString("No services found.\n")
		return b.String()
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("SERVICE", "STATUS", "TYPE", "READY ENDPOINTS", "PROBABLE CAUSE")
	for _, res := range r.Results {
		ready := "-"
		if res.EndpointInfo != nil {
			ready = strconv.Itoa(res.EndpointInfo.ReadyEndpoints)
		}
		table.AddRow(res.ResourceName, p.status(res.Status), res.ServiceType, ready, firstOr(res.ProbableCauses, "-"))
	}
	b.WriteString(table.String())
	b.WriteString("\n")
	return b.String()
}

func namespacesText(r *models.NamespaceList) string {
	table := uitable.New()
	table.AddRow("NAMESPACE")
	for _, ns := range r.Namespaces {
		table.AddRow(ns)
	}
	return table.String() + "\n"
}

func writeFindings(b *strings.Builder, causes, evidence, actions []string) {
	writeList(b, "Probable causes", causes)
	writeList(b, "Evidence", evidence)
	writeList(b, "Suggested actions", actions)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func formatSelector(selector map[string]string) string {
	if selector == nil {
		return "<none>"
	}
	if len(selector) == 0 {
		return "<empty>"
	}
	return labels.Set(selector).String()
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func firstOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return items[0]
}
