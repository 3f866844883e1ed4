package entity

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownTopic      = errors.New("unknown feedback topic")
	ErrEmptyFeedback     = errors.New("feedback text is empty")
	ErrFeedbackTooLong   = errors.New("feedback text is too long")
	ErrAccessDenied      = errors.New("access denied")
)
