package wizard

import (
	"fmt"
	"strings"
)

// Step is a wizard state.
type Step int

const (
	StepJobDescription Step = iota
	StepResume
	StepPersonalSummary
	StepDone
)

// Steps lists the input steps in order.
var Steps = []Step{StepJobDescription, StepResume, StepPersonalSummary}

type stepSpec struct {
	key     string
	title   string
	min     int
	message string
}

var stepSpecs = map[Step]stepSpec{
	StepJobDescription: {
		key:     "job_description",
		title:   "Job Description",
		min:     20,
		message: "Please enter a detailed job description (at least 20 characters).",
	},
	StepResume: {
		key:     "resume",
		title:   "Your Resume",
		min:     50,
		message: "Please enter your resume (at least 50 characters).",
	},
	StepPersonalSummary: {
		key:     "personal_summary",
		title:   "Personal Summary",
		min:     30,
		message: "Please enter your personal summary (at least 30 characters).",
	},
}

// Key is the field name used on the wire.
func (s Step) Key() string {
	if s == StepDone {
		return "done"
	}
	return stepSpecs[s].key
}

// Title is the label shown above the step.
func (s Step) Title() string {
	if s == StepDone {
		return "Done"
	}
	return stepSpecs[s].title
}

// MinLength is the trimmed character minimum for the step.
func (s Step) MinLength() int {
	return stepSpecs[s].min
}

func (s Step) String() string {
	return s.Key()
}

// ParseStep accepts a step key or its 1-based number.
func ParseStep(raw string) (Step, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "job_description", "job-description", "1":
		return StepJobDescription, nil
	case "resume", "2":
		return StepResume, nil
	case "personal_summary", "personal-summary", "3":
		return StepPersonalSummary, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownStep, raw)
	}
}
