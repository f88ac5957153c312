package service

import (
	"context"
	"testing"

	"rehber-go/internal/model"
	"rehber-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeedbackRepo 以 message_id 为键的内存实现。
type fakeFeedbackRepo struct {
	byMessage map[string]*model.ChatFeedback
	known     map[string]bool
}

func newFakeFeedbackRepo(knownMessages ...string) *fakeFeedbackRepo {
	known := make(map[string]bool)
	for _, id := range knownMessages {
		known[id] = true
	}
	return &fakeFeedbackRepo{byMessage: make(map[string]*model.ChatFeedback), known: known}
}

func (f *fakeFeedbackRepo) Upsert(ctx context.Context, fb *model.ChatFeedback) (bool, error) {
	if !f.known[fb.MessageID] {
		return false, repository.ErrMessageNotFound
	}
	if existing, ok := f.byMessage[fb.MessageID]; ok {
		existing.Score = fb.Score
		existing.Reason = fb.Reason
		return false, nil
	}
	f.byMessage[fb.MessageID] = fb
	return true, nil
}

func TestFeedbackRejectsOutOfRangeScore(t *testing.T) {
	svc := NewFeedbackService(newFakeFeedbackRepo("m1"))

	_, err := svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "m1", Score: 0})
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "m1", Score: 6})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestFeedbackCreatesWithAutoReason(t *testing.T) {
	repo := newFakeFeedbackRepo("m1")
	svc := NewFeedbackService(repo)

	created, err := svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "m1", Score: 5})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Cok iyi", repo.byMessage["m1"].Reason)
}

func TestFeedbackUpdatesExisting(t *testing.T) {
	repo := newFakeFeedbackRepo("m1")
	svc := NewFeedbackService(repo)

	_, err := svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "m1", Score: 2})
	require.NoError(t, err)

	created, err := svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "m1", Score: 4})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, repo.byMessage["m1"].Score)
	assert.Equal(t, "Iyi", repo.byMessage["m1"].Reason)
}

func TestFeedbackUnknownMessage(t *testing.T) {
	svc := NewFeedbackService(newFakeFeedbackRepo())

	_, err := svc.Submit(context.Background(), "okul-a", "ogrenci", model.FeedbackRequest{MessageID: "yok", Score: 3})
	assert.ErrorIs(t, err, repository.ErrMessageNotFound)
}
