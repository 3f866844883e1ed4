package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	topic, err := ParseTopic(" Bug ")
	require.NoError(t, err)
	require.Equal(t, TopicBug, topic)

	_, err = ParseTopic("spam")
	require.ErrorIs(t, err, ErrUnknownTopic)
}

func TestFeedbackValidate(t *testing.T) {
	f := &Feedback{Topic: TopicIdea, Text: "добавьте тёмную тему"}
	require.NoError(t, f.Validate())

	f.Text = "   "
	require.ErrorIs(t, f.Validate(), ErrEmptyFeedback)

	f.Text = strings.Repeat("я", MaxFeedbackLength+1)
	require.ErrorIs(t, f.Validate(), ErrFeedbackTooLong)

	f.Text = strings.Repeat("я", MaxFeedbackLength)
	require.NoError(t, f.Validate())
}
