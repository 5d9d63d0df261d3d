package mqtt

import "errors"

// Errors returned by Client. Failures from the broker are wrapped, so
// compare with errors.Is.
var (
	// ErrConnectionFailed: the broker refused the first connection or did
	// not answer in time. There is no retry at startup.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected: the client is closed or between reconnects.
	ErrNotConnected = errors.New("mqtt: not connected")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// Argument errors, returned before anything is sent.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
)
