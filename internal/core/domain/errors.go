package domain

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSessionNotFound     = errors.New("video session not found")
	ErrRoomNotFound        = errors.New("remote room not found")
	ErrRecordingNotFound   = errors.New("recording not found")
	ErrMetricsNotFound     = errors.New("consultation metrics not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotRemoteVideo      = errors.New("appointment is not a remote video appointment")
	ErrProviderDisabled    = errors.New("video provider is disabled")
	ErrProviderUnavailable = errors.New("video provider is unavailable")
)
