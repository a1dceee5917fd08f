package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Fields holds the three wizard inputs.
type Fields struct {
	JobDescription  string `json:"job_description" validate:"required,min=20"`
	Resume          string `json:"resume" validate:"required,min=50"`
	PersonalSummary string `json:"personal_summary" validate:"required,min=30"`
}

// Get returns the value for step.
func (f Fields) Get(step Step) string {
	switch step {
	case StepJobDescription:
		return f.JobDescription
	case StepResume:
		return f.Resume
	case StepPersonalSummary:
		return f.PersonalSummary
	default:
		return ""
	}
}

func (f *Fields) set(step Step, value string) {
	switch step {
	case StepJobDescription:
		f.JobDescription = value
	case StepResume:
		f.Resume = value
	case StepPersonalSummary:
		f.PersonalSummary = value
	}
}

func (f Fields) trimmed() Fields {
	return Fields{
		JobDescription:  strings.TrimSpace(f.JobDescription),
		Resume:          strings.TrimSpace(f.Resume),
		PersonalSummary: strings.TrimSpace(f.PersonalSummary),
	}
}

// ValidationError blocks a forward transition.
type ValidationError struct {
	Step    Step   `json:"-"`
	Field   string `json:"field"`
	Min     int    `json:"min"`
	Length  int    `json:"length"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStep checks one step's value against its minimum, after trimming.
func ValidateStep(step Step, value string) error {
	spec, ok := stepSpecs[step]
	if !ok {
		return fmt.Errorf("no input for step %s", step)
	}
	trimmed := strings.TrimSpace(value)
	if err := validate.Var(trimmed, fmt.Sprintf("required,min=%d", spec.min)); err != nil {
		return newValidationError(step, trimmed)
	}
	return nil
}

// ValidateAll checks every step and reports the first failing one.
func ValidateAll(f Fields) error {
	err := validate.Struct(f.trimmed())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	for _, step := range Steps {
		for _, fe := range verrs {
			if fe.Field() == step.Key() {
				return newValidationError(step, strings.TrimSpace(f.Get(step)))
			}
		}
	}
	return err
}

func newValidationError(step Step, trimmed string) *ValidationError {
	spec := stepSpecs[step]
	return &ValidationError{
		Step:    step,
		Field:   spec.key,
		Min:     spec.min,
		Length:  len([]rune(trimmed)),
		Message: spec.message,
	}
}
