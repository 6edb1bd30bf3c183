package processor

import "errors"

// ErrPageNotConnected means the event's page has no connected link, so
// there is no credential to act on. The event is dropped, not retried.
var ErrPageNotConnected = errors.New("page not found or not connected")

// ErrUnauthorized means a reply was attempted by an account that does not
// own the conversation's page.
var ErrUnauthorized = errors.New("unauthorized access to this conversation")

// ErrDeliveryFailed means the outbound provider dispatch failed. Nothing is
// persisted; the caller may retry.
var ErrDeliveryFailed = errors.New("message delivery failed")

// ErrInvalidInput means the reply content was rejected before dispatch.
var ErrInvalidInput = errors.New("message content is required")
