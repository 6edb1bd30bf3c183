package processor

import (
	"time"

	"github.com/aman-1511/Facebook-Helpdesk/store"
)

// InboundEvent is a normalized inbound Messenger event. Echo events (the
// page's own outbound sends reflected back by the webhook) are filtered
// upstream and never reach the engine.
type InboundEvent struct {
	PageID     string
	CustomerID string
	MessageID  string
	Text       string
	OccurredAt time.Time
}

// Result is what ingestion hands to the realtime fanout.
type Result struct {
	Conversation *store.Conversation
	Message      *store.Message
	// Duplicate is true when the message had already been persisted by an
	// earlier delivery of the same webhook.
	Duplicate bool
}
