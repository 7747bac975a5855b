package models

// Status is the overall verdict for a diagnosed resource.
type Status string

const (
	StatusCritical  Status = "Critical"
	StatusWarning   Status = "Warning"
	StatusHealthy   Status = "Healthy"
	StatusCompleted Status = "Completed"
	StatusUnknown   Status = "Unknown"
)

// Rank orders statuses for severity sorting. Lower is more severe.
// Unknown sorts together with Warning.
func (s Status) Rank() int {
	switch s {
	case StatusCritical:
		return 0
	case StatusWarning:
		return 1
	case StatusHealthy:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 1
	}
}

// IsHealthy reports whether the status counts toward the healthy tally.
func (s Status) IsHealthy() bool {
	return s == StatusHealthy || s == StatusCompleted
}

// String implements fmt.Stringer
func (s Status) String() string {
	return string(s)
}

// WorstOf returns the overall health for a tally of critical and warning results.
func WorstOf(critical, warning int) Status {
	switch {
	case critical > 0:
		return StatusCritical
	case warning > 0:
		return StatusWarning
	default:
		return StatusHealthy
	}
}
