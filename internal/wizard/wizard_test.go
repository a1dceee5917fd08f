package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobassist/internal/backend"
)

type fakeSubmitter struct {
	calls int
	got   backend.ApplicationInput
	res   backend.ProcessResult
	err   error
}

func (f *fakeSubmitter) ProcessApplication(_ context.Context, in backend.ApplicationInput) (backend.ProcessResult, error) {
	f.calls++
	f.got = in
	return f.res, f.err
}

const (
	jobDescription  = "Senior Backend Engineer needed for fintech startup building payment rails in Go."
	resumeText      = "Jane Doe. Eight years building distributed systems in Go and PostgreSQL at scale."
	personalSummary = "I love turning messy payment flows into reliable services."
)

func TestJobDescriptionBoundary(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("  "+strings.Repeat("a", 19)+"  "))
	err := w.Next()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepJobDescription, verr.Step)
	assert.Equal(t, 19, verr.Length)
	assert.Equal(t, StepJobDescription, w.Step())
	assert.Equal(t, err, w.Error())

	require.NoError(t, w.Set(strings.Repeat("a", 20)))
	assert.NoError(t, w.Error())
	require.NoError(t, w.Next())
	assert.Equal(t, StepResume, w.Step())
}

func TestValidateStepCountsRunes(t *testing.T) {
	assert.NoError(t, ValidateStep(StepJobDescription, strings.Repeat("é", 20)))
	assert.Error(t, ValidateStep(StepJobDescription, strings.Repeat("é", 19)))
	assert.Error(t, ValidateStep(StepResume, strings.Repeat("x", 49)))
	assert.NoError(t, ValidateStep(StepResume, strings.Repeat("x", 50)))
	assert.Error(t, ValidateStep(StepPersonalSummary, strings.Repeat("x", 29)))
	assert.NoError(t, ValidateStep(StepPersonalSummary, strings.Repeat("x", 30)))
	assert.Error(t, ValidateStep(StepPersonalSummary, ""))
}

func TestBackKeepsValues(t *testing.T) {
	w := New()
	assert.ErrorIs(t, w.Back(), ErrFirstStep)
	require.NoError(t, w.Set(jobDescription))
	require.NoError(t, w.Next())
	require.NoError(t, w.Set("short"))
	require.NoError(t, w.Back())
	assert.Equal(t, StepJobDescription, w.Step())
	assert.Equal(t, "short", w.Fields().Resume)
}

func TestSubmitOnlyFromLastStep(t *testing.T) {
	w := New()
	sub := &fakeSubmitter{}
	_, err := w.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrNotLastStep)
	assert.Zero(t, sub.calls)
}

func fillToLastStep(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Set(jobDescription))
	require.NoError(t, w.Next())
	require.NoError(t, w.Set(resumeText))
	require.NoError(t, w.Next())
	require.NoError(t, w.Set(personalSummary))
}

func TestSubmitSuccess(t *testing.T) {
	w := New()
	fillToLastStep(t, w)
	assert.Equal(t, Progress{Step: 3, Total: 3, Percent: 100, Title: "Personal Summary"}, w.Progress())

	sub := &fakeSubmitter{res: backend.ProcessResult{ConversationID: "conv-42"}}
	res, err := w.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "conv-42", res.ConversationID)
	assert.Equal(t, StepDone, w.Step())
	assert.Equal(t, jobDescription, sub.got.JobDescription)

	got, ok := w.Result()
	require.True(t, ok)
	assert.NotEmpty(t, got.ConversationID)

	assert.ErrorIs(t, w.Set("x"), ErrCompleted)
}

func TestSubmitFailureKeepsState(t *testing.T) {
	w := New()
	fillToLastStep(t, w)
	sub := &fakeSubmitter{err: errors.New("backend down")}

	_, err := w.Submit(context.Background(), sub)
	require.Error(t, err)
	assert.Equal(t, StepPersonalSummary, w.Step())
	assert.Equal(t, err, w.Error())
	assert.Equal(t, resumeText, w.Fields().Resume)
	_, ok := w.Result()
	assert.False(t, ok)

	sub.err = nil
	sub.res = backend.ProcessResult{ConversationID: "conv-2"}
	_, err = w.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.calls)
}

func TestSubmitRevalidatesEarlierSteps(t *testing.T) {
	w := New()
	fillToLastStep(t, w)
	require.NoError(t, w.SetField(StepResume, "too short"))
	sub := &fakeSubmitter{}

	_, err := w.Submit(context.Background(), sub)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepResume, verr.Step)
	assert.Zero(t, sub.calls)
}

func TestProgress(t *testing.T) {
	w := New()
	p := w.Progress()
	assert.Equal(t, 1, p.Step)
	assert.InDelta(t, 33.33, p.Percent, 0.01)
}
