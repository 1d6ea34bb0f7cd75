package workflow

import (
	"github.com/shieldnetlabs/shieldnet_backend/models"
)

// ProgressEventType discriminates events on a streamed analysis.
type ProgressEventType string

const (
	ProgressEventProgress ProgressEventType = "progress"
	ProgressEventStream   ProgressEventType = "stream"
	ProgressEventComplete ProgressEventType = "complete"
	ProgressEventError    ProgressEventType = "error"
)

// ProgressEvent is one entry in the ordered event sequence a streamed
// analysis emits. Step numbering 1-5 is a fixed contract; callers parse it
// positionally.
type ProgressEvent struct {
	Type    ProgressEventType `json:"type"`
	Message string            `json:"message,omitempty"`
	Step    int               `json:"step,omitempty"`
	Text    string            `json:"text,omitempty"`
	Result  *Result           `json:"result,omitempty"`
}

// The five fixed progress steps.
const (
	stepUploaded = iota + 1
	stepSent
	stepAnalyzing
	stepParsing
	stepCorrelating
)

var stepMessages = map[int]string{
	stepUploaded:    "File uploaded successfully",
	stepSent:        "Sending invoice for AI analysis...",
	stepAnalyzing:   "AI is analyzing the invoice...",
	stepParsing:     "Parsing analysis results...",
	stepCorrelating: "Checking ShieldNet threat database...",
}

func progressEvent(step int) ProgressEvent {
	return ProgressEvent{Type: ProgressEventProgress, Message: stepMessages[step], Step: step}
}

// Result is the primary success value of an analysis plus any non-fatal
// side-effect warnings (payment dispatch or threat auto-report failures).
// Warnings never indicate a failed analysis.
type Result struct {
	*models.InvoiceAssessment
	Warnings []string `json:"warnings,omitempty"`
}
