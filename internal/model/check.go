package model

// CheckStatus is the outcome of an engine preflight check.
type CheckStatus string

const (
	CheckStatusOK      CheckStatus = "ok"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusError   CheckStatus = "error"
)

// CheckResult is a single preflight check, used by `gsx doctor` and `/health`.
type CheckResult struct {
	ID      string // e.g. "docker_daemon", "boot_binary".
	Message string
	Status  CheckStatus
}

// CheckSummary counts preflight results per status.
type CheckSummary struct {
	OK       int
	Warnings int
	Errors   int
}

// Healthy is false when any check failed, warnings don't count.
func (s CheckSummary) Healthy() bool { return s.Errors == 0 }

// SummarizeChecks counts the results by status.
func SummarizeChecks(results []CheckResult) CheckSummary {
	var s CheckSummary
	for _, r := range results {
		switch r.Status {
		case CheckStatusOK:
			s.OK++
		case CheckStatusWarning:
			s.Warnings++
		case CheckStatusError:
			s.Errors++
		}
	}
	return s
}
