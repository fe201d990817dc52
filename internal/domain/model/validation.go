package model

// Severity of a code validation finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidateCodeRequest is the input for POST /validate.
type ValidateCodeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// ValidationIssue points at a single finding in submitted code.
type ValidationIssue struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ValidateCodeResponse reports findings and improvement hints.
type ValidateCodeResponse struct {
	Valid       bool              `json:"valid"`
	Errors      []ValidationIssue `json:"errors"`
	Suggestions []string          `json:"suggestions"`
}
