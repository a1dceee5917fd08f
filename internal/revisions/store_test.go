package revisions

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobassist/resume/model"
)

func newTestStore() *Store {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	n := 0
	return NewStore(
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}),
		WithIDs(func() string {
			n++
			return fmt.Sprintf("rev-%d", n)
		}),
	)
}

func TestAppendGrowsByOneAndKeepsPrior(t *testing.T) {
	s := newTestStore()
	contents := []string{"v1", "v2", "v3", "v4"}
	var snapshots [][]model.Revision
	for i, c := range contents {
		before, err := s.List(model.DocumentResume)
		require.NoError(t, err)
		_, err = s.Append(model.DocumentResume, c, fmt.Sprintf("edit %d", i), nil)
		require.NoError(t, err)
		after, err := s.List(model.DocumentResume)
		require.NoError(t, err)

		require.Len(t, after, len(before)+1)
		assert.Equal(t, before, after[:len(before)])
		snapshots = append(snapshots, after)
	}
	final, _ := s.List(model.DocumentResume)
	for _, snap := range snapshots {
		assert.Equal(t, snap, final[:len(snap)])
	}
	cur, ok := s.Current(model.DocumentResume)
	require.True(t, ok)
	assert.Equal(t, "v4", cur.Content)
}

func TestDocumentTypesAreIndependent(t *testing.T) {
	s := newTestStore()
	_, err := s.Append(model.DocumentResume, "r", "", nil)
	require.NoError(t, err)
	_, ok := s.Current(model.DocumentCoverLetter)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len(model.DocumentResume))
	assert.Equal(t, 0, s.Len(model.DocumentCoverLetter))
}

func TestAppendRejectsUnknownType(t *testing.T) {
	s := newTestStore()
	_, err := s.Append("memo", "x", "", nil)
	assert.ErrorIs(t, err, model.ErrInvalidDocumentType)
}

func TestListReturnsCopy(t *testing.T) {
	s := newTestStore()
	ref := &model.MessageRef{ID: "m1", Content: "shorter"}
	_, err := s.Append(model.DocumentResume, "v1", "shorter", ref)
	require.NoError(t, err)

	ref.Content = "mutated"
	list, _ := s.List(model.DocumentResume)
	list[0].Content = "changed"
	list[0].Message.Content = "changed"

	again, _ := s.List(model.DocumentResume)
	assert.Equal(t, "v1", again[0].Content)
	assert.Equal(t, "shorter", again[0].Message.Content)
}

func TestRestoreIsReadOnly(t *testing.T) {
	s := newTestStore()
	first, _ := s.Append(model.DocumentCoverLetter, "draft", "", nil)
	_, _ = s.Append(model.DocumentCoverLetter, "final", "", nil)

	content, err := s.Restore(model.DocumentCoverLetter, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", content)
	assert.Equal(t, 2, s.Len(model.DocumentCoverLetter))
	cur, _ := s.Current(model.DocumentCoverLetter)
	assert.Equal(t, "final", cur.Content)

	_, err = s.Restore(model.DocumentCoverLetter, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedOrdersAndOnlyFillsEmpty(t *testing.T) {
	s := newTestStore()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := s.Seed(model.DocumentResume, []model.Revision{
		{ID: "2", Content: "later", Timestamp: t1.Add(time.Hour)},
		{ID: "1", Content: "earlier", Timestamp: t1},
		{Content: "no id", Timestamp: t1.Add(2 * time.Hour)},
	})
	require.NoError(t, err)
	list, _ := s.List(model.DocumentResume)
	require.Len(t, list, 3)
	assert.Equal(t, "earlier", list[0].Content)
	assert.Equal(t, "later", list[1].Content)
	assert.NotEmpty(t, list[2].ID)
	assert.Equal(t, model.DocumentResume, list[2].DocumentType)

	err = s.Seed(model.DocumentResume, []model.Revision{{Content: "x"}})
	assert.ErrorIs(t, err, ErrAlreadySeeded)
}

func TestTwoChatRevisionsSecondIsCurrent(t *testing.T) {
	s := newTestStore()
	a, _ := s.AppendFrom(SourceChat, model.DocumentResume, "resume A", "add metrics", &model.MessageRef{ID: "m1"})
	b, _ := s.AppendFrom(SourceChat, model.DocumentResume, "resume B", "tighten summary", &model.MessageRef{ID: "m2"})
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Timestamp.Before(b.Timestamp))

	list, _ := s.List(model.DocumentResume)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"resume A", "resume B"}, []string{list[0].Content, list[1].Content})
	cur, _ := s.Current(model.DocumentResume)
	assert.Equal(t, b.ID, cur.ID)
}
