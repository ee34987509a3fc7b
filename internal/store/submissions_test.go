package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/testutil"
)

func TestWriteSubmission_AssignsSeqAndTime(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))

	first, err := s.WriteSubmission(ctx, Submission{
		ID:        "sub-1",
		FormID:    "a",
		SessionID: "sess-1",
		Answers:   form.Answers{"name": form.Single("Ada"), "skills": form.Multiple{"go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "sess-1", first.SessionID)
	assert.True(t, first.SubmittedAt.After(testutil.Epoch))
	assert.Equal(t, form.Multiple{"go"}, first.Answers["skills"])

	second, err := s.WriteSubmission(ctx, Submission{ID: "sub-2", FormID: "a", Answers: form.Answers{"name": form.Single("Bob")}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)
}

func TestWriteSubmission_KeepsSubmittedAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	written, err := s.WriteSubmission(ctx, Submission{
		ID:          "sub-1",
		FormID:      "a",
		Answers:     form.Answers{"name": form.Single("Ada")},
		SubmittedAt: at,
	})
	require.NoError(t, err)
	assert.True(t, at.Equal(written.SubmittedAt), "caller timestamp kept, got %v", written.SubmittedAt)
	assert.Equal(t, time.UTC, written.SubmittedAt.Location())
}

func TestWriteSubmission_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))

	_, err := s.WriteSubmission(ctx, Submission{ID: "sub-1", FormID: "a", Answers: form.Answers{"name": form.Single("Ada")}})
	require.NoError(t, err)

	again, err := s.WriteSubmission(ctx, Submission{ID: "sub-1", FormID: "a", Answers: form.Answers{"name": form.Single("Changed")}})
	require.NoError(t, err)
	assert.Equal(t, form.Single("Ada"), again.Answers["name"], "first write wins")

	subs, err := s.ListSubmissions(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestWriteSubmission_UnknownForm(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteSubmission(context.Background(), Submission{ID: "sub-1", FormID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteSubmission_EmptyAnswers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))

	sub, err := s.WriteSubmission(ctx, Submission{ID: "sub-1", FormID: "a"})
	require.NoError(t, err)
	assert.NotNil(t, sub.Answers)
	assert.Empty(t, sub.Answers)
}

func TestListSubmissions_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))
	require.NoError(t, s.CreateForm(ctx, createTestForm("b", form.StatusPublished)))

	for _, w := range []struct{ id, formID string }{
		{"z", "a"}, {"y", "b"}, {"x", "a"},
	} {
		_, err := s.WriteSubmission(ctx, Submission{ID: w.id, FormID: w.formID, Answers: form.Answers{"name": form.Single(w.id)}})
		require.NoError(t, err)
	}

	subs, err := s.ListSubmissions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "z", subs[0].ID)
	assert.Equal(t, "x", subs[1].ID)
	assert.Less(t, subs[0].Seq, subs[1].Seq)

	none, err := s.ListSubmissions(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetSubmission(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, createTestForm("a", form.StatusPublished)))

	written, err := s.WriteSubmission(ctx, Submission{ID: "sub-1", FormID: "a", Answers: form.Answers{"name": form.Single("Ada")}})
	require.NoError(t, err)

	got, err := s.GetSubmission(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, written.Seq, got.Seq)
	assert.True(t, written.SubmittedAt.Equal(got.SubmittedAt))
	assert.Equal(t, time.UTC, got.SubmittedAt.Location())

	_, err = s.GetSubmission(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
