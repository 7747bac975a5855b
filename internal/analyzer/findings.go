package analyzer

import "fmt"

// Severity tags how strongly a finding affects the overall verdict.
type Severity int

const (
	// SeverityWarning findings degrade a resource to Warning
	SeverityWarning Severity = iota
	// SeverityCritical findings make a pod Critical on their own
	SeverityCritical
)

// String implements fmt.Stringer
func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// Category identifies which rule produced a finding.
type Category string

const (
	CategoryCrashLoopBackOff Category = "CrashLoopBackOff"
	CategoryImagePull        Category = "ImagePull"
	CategoryOOMKilled        Category = "OOMKilled"
	CategoryProbeFailure     Category = "ProbeFailure"
	CategoryHighRestarts     Category = "HighRestarts"
	CategorySelectorMismatch Category = "SelectorMismatch"
	CategoryEndpoints        Category = "Endpoints"
	CategoryPortMismatch     Category = "PortMismatch"
	CategoryCoreDNS          Category = "CoreDNS"
	CategoryAnalysisError    Category = "AnalysisError"
)

// Finding is a single probable cause tagged at creation time.
type Finding struct {
	Text     string
	Category Category
	Severity Severity
}

// Findings is the batch of causes, evidence and actions returned by one rule.
// Evidence and actions are flat lists and are not linked to individual causes.
type Findings struct {
	Causes   []Finding
	Evidence []string
	Actions  []string
}

func (f *Findings) cause(category Category, severity Severity, format string, args ...interface{}) {
	f.Causes = append(f.Causes, Finding{
		Text:     fmt.Sprintf(format, args...),
		Category: category,
		Severity: severity,
	})
}

func (f *Findings) evidence(format string, args ...interface{}) {
	f.Evidence = append(f.Evidence, fmt.Sprintf(format, args...))
}

func (f *Findings) actions(actions ...string) {
	f.Actions = append(f.Actions, actions...)
}

// Merge appends other after f, preserving order.
func (f *Findings) Merge(other Findings) {
	f.Causes = append(f.Causes, other.Causes...)
	f.Evidence = append(f.Evidence, other.Evidence...)
	f.Actions = append(f.Actions, other.Actions...)
}

// Empty reports whether no cause was recorded.
func (f Findings) Empty() bool {
	return len(f.Causes) == 0
}

// HasSeverity reports whether any cause carries the given severity.
func (f Findings) HasSeverity(severity Severity) bool {
	for _, c := range f.Causes {
		if c.Severity == severity {
			return true
		}
	}
	return false
}

// HasCategory reports whether any cause belongs to one of the categories.
func (f Findings) HasCategory(categories ...Category) bool {
	for _, c := range f.Causes {
		for _, category := range categories {
			if c.Category == category {
				return true
			}
		}
	}
	return false
}

// CauseTexts renders the causes in evaluation order.
func (f Findings) CauseTexts() []string {
	texts := make([]string, 0, len(f.Causes))
	for _, c := range f.Causes {
		texts = append(texts, c.Text)
	}
	return texts
}

// orEmpty guarantees a non-nil slice so results always serialize as arrays.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func messageOrDefault(msg string) string {
	if msg == "" {
		return "No message"
	}
	return msg
}

func issueWord(n int) string {
	if n == 1 {
		return "issue"
	}
	return "issues"
}
