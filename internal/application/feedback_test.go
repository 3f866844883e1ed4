package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"telegram-bot/internal/domain/entity"
)

type fakeSink struct {
	delivered []*entity.Feedback
	err       error
}

func (f *fakeSink) Deliver(_ context.Context, feedback *entity.Feedback) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, feedback)
	return nil
}

func newFeedbackService(sink *fakeSink) *FeedbackService {
	sessions := NewSessionService(NewFeedbackMachine())
	return NewFeedbackService(sessions, sink)
}

func TestFeedbackService_FullFlow(t *testing.T) {
	sink := &fakeSink{}
	svc := newFeedbackService(sink)
	session := entity.NewSession(10, 1)

	require.NoError(t, svc.Begin(session))
	require.Equal(t, entity.StateFeedbackTopic, session.State)

	topic, err := svc.ChooseTopic(session, "idea")
	require.NoError(t, err)
	require.Equal(t, entity.TopicIdea, topic)
	require.Equal(t, entity.StateFeedbackText, session.State)

	require.NoError(t, svc.SetText(session, "  добавьте экспорт  "))
	require.Equal(t, entity.StateFeedbackConfirm, session.State)

	feedback, err := svc.Submit(context.Background(), session, "tester")
	require.NoError(t, err)
	require.NotEmpty(t, feedback.ID)
	require.Equal(t, "добавьте экспорт", feedback.Text)
	require.Equal(t, "tester", feedback.Username)
	require.Len(t, sink.delivered, 1)
	require.Equal(t, entity.StateIdle, session.State)
}

func TestFeedbackService_InvalidSteps(t *testing.T) {
	svc := newFeedbackService(&fakeSink{})
	session := entity.NewSession(10, 1)

	// Тему нельзя выбрать вне сценария
	_, err := svc.ChooseTopic(session, "bug")
	require.ErrorIs(t, err, entity.ErrInvalidTransition)

	require.NoError(t, svc.Begin(session))
	_, err = svc.ChooseTopic(session, "spam")
	require.ErrorIs(t, err, entity.ErrUnknownTopic)
	require.Equal(t, entity.StateFeedbackTopic, session.State)

	_, err = svc.ChooseTopic(session, "bug")
	require.NoError(t, err)
	require.ErrorIs(t, svc.SetText(session, " "), entity.ErrEmptyFeedback)
	require.Equal(t, entity.StateFeedbackText, session.State)

	_, err = svc.Submit(context.Background(), session, "tester")
	require.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestFeedbackService_DeliveryFailureKeepsConfirmStep(t *testing.T) {
	sink := &fakeSink{err: errors.New("telegram is down")}
	svc := newFeedbackService(sink)
	session := entity.NewSession(10, 1)

	require.NoError(t, svc.Begin(session))
	_, err := svc.ChooseTopic(session, "bug")
	require.NoError(t, err)
	require.NoError(t, svc.SetText(session, "падает на старте"))

	_, err = svc.Submit(context.Background(), session, "tester")
	require.Error(t, err)
	require.Equal(t, entity.StateFeedbackConfirm, session.State)
	require.Equal(t, "падает на старте", session.Get("text"))
}

func TestFeedbackService_BeginAgainClearsDraft(t *testing.T) {
	svc := newFeedbackService(&fakeSink{})
	session := entity.NewSession(10, 1)

	require.NoError(t, svc.Begin(session))
	_, err := svc.ChooseTopic(session, "bug")
	require.NoError(t, err)

	require.NoError(t, svc.Begin(session))
	require.Empty(t, session.Get("topic"))

	svc.Discard(session)
	require.Equal(t, entity.StateIdle, session.State)
}
