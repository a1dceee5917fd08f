package wizard

import (
	"context"
	"errors"
	"sync"

	"jobassist/internal/backend"
	"jobassist/internal/shared/telemetry"
)

var (
	ErrFirstStep   = errors.New("already at the first step")
	ErrNotLastStep = errors.New("submit is only available from the last step")
	ErrCompleted   = errors.New("application already submitted")
	ErrSubmitting  = errors.New("submission already in progress")
	ErrUnknownStep = errors.New("unknown wizard step")
)

// Submitter sends the completed application.
type Submitter interface {
	ProcessApplication(ctx context.Context, in backend.ApplicationInput) (backend.ProcessResult, error)
}

// Progress describes where the wizard is.
type Progress struct {
	Step    int     `json:"step"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Title   string  `json:"title"`
}

// Wizard collects the application inputs one step at a time.
type Wizard struct {
	mu         sync.Mutex
	step       Step
	fields     Fields
	err        error
	submitting bool
	result     *backend.ProcessResult
}

// New starts a wizard at the job description step.
func New() *Wizard {
	return &Wizard{step: StepJobDescription}
}

// Step returns the current state.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Fields returns the values entered so far.
func (w *Wizard) Fields() Fields {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fields
}

// Set replaces the current step's value. The inline error is cleared.
func (w *Wizard) Set(value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepDone {
		return ErrCompleted
	}
	w.fields.set(w.step, value)
	w.err = nil
	return nil
}

// SetField replaces the value of any input step.
func (w *Wizard) SetField(step Step, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepDone {
		return ErrCompleted
	}
	if _, ok := stepSpecs[step]; !ok {
		return ErrUnknownStep
	}
	w.fields.set(step, value)
	if step == w.step {
		w.err = nil
	}
	return nil
}

// Next validates the current step and advances. On failure the wizard stays
// put and the *ValidationError is also available from Error.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepDone:
		return ErrCompleted
	case StepPersonalSummary:
		return ErrNotLastStep
	}
	if err := ValidateStep(w.step, w.fields.Get(w.step)); err != nil {
		w.err = err
		return err
	}
	w.err = nil
	w.step++
	return nil
}

// Back returns to the previous step without validating.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepDone:
		return ErrCompleted
	case StepJobDescription:
		return ErrFirstStep
	}
	w.err = nil
	w.step--
	return nil
}

// Submit validates every step and sends the application. On failure the
// error is recorded and the step and fields are kept.
func (w *Wizard) Submit(ctx context.Context, s Submitter) (backend.ProcessResult, error) {
	w.mu.Lock()
	switch {
	case w.step == StepDone:
		w.mu.Unlock()
		return backend.ProcessResult{}, ErrCompleted
	case w.step != StepPersonalSummary:
		w.mu.Unlock()
		return backend.ProcessResult{}, ErrNotLastStep
	case w.submitting:
		w.mu.Unlock()
		return backend.ProcessResult{}, ErrSubmitting
	}
	if err := ValidateAll(w.fields); err != nil {
		w.err = err
		w.mu.Unlock()
		return backend.ProcessResult{}, err
	}
	in := backend.ApplicationInput{
		JobDescription:  w.fields.JobDescription,
		Resume:          w.fields.Resume,
		PersonalSummary: w.fields.PersonalSummary,
	}
	w.submitting = true
	w.err = nil
	w.mu.Unlock()

	res, err := s.ProcessApplication(ctx, in)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.err = err
		telemetry.Error("wizard.submit_failed", map[string]any{"error": err})
		return backend.ProcessResult{}, err
	}
	w.step = StepDone
	w.result = &res
	telemetry.Info("wizard.submitted", map[string]any{"conversation_id": res.ConversationID})
	return res, nil
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Error returns the error shown for the current step, if any.
func (w *Wizard) Error() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// DismissError clears the recorded error.
func (w *Wizard) DismissError() {
	w.mu.Lock()
	w.err = nil
	w.mu.Unlock()
}

// Result returns the submission result once done.
func (w *Wizard) Result() (backend.ProcessResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return backend.ProcessResult{}, false
	}
	return *w.result, true
}

// Progress reports the 1-based step and percentage complete.
func (w *Wizard) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := len(Steps)
	n := int(w.step) + 1
	if n > total {
		n = total
	}
	return Progress{
		Step:    n,
		Total:   total,
		Percent: float64(n) / float64(total) * 100,
		Title:   w.step.Title(),
	}
}
