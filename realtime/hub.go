package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/store"
)

// Event types pushed to live agent sessions.
const (
	EventTypeNewMessage  = "new_message"  // inbound customer message
	EventTypeMessageSent = "message_sent" // outbound reply, keeps sibling sessions current
)

// subscriberBufferSize is the channel buffer for each live session. A
// session that falls this far behind starts missing pushes and reconciles
// through the REST read path.
const subscriberBufferSize = 64

// Event is what gets pushed to live agent sessions after the threading
// engine persists a message.
type Event struct {
	Type         string              `json:"type"`
	Conversation *store.Conversation `json:"conversation"`
	Message      *store.Message      `json:"message"`
}

// Hub fans events out to the live sessions of an agent account. Delivery is
// best-effort and at-most-once per session: no acknowledgement, no retry,
// nothing persisted. The REST read path is the source of truth.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // accountID -> subID -> ch
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[string]chan Event),
	}
}

// Subscribe registers a live session under an agent account and returns the
// event channel plus a subscription id. The subscription is cleaned up when
// ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, accountID string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	h.mu.Lock()
	if _, ok := h.subscribers[accountID]; !ok {
		h.subscribers[accountID] = make(map[string]chan Event)
	}
	h.subscribers[accountID][subID] = ch
	h.mu.Unlock()

	log.Debug().
		Str("account_id", accountID).
		Str("sub_id", subID).
		Msg("Live session subscribed")

	go func() {
		<-ctx.Done()
		h.Unsubscribe(accountID, subID)
	}()

	return ch, subID
}

// Publish sends an event to every live session of the account. Sessions
// with full buffers are skipped; the send never blocks. The sends happen
// under the read lock: Unsubscribe closes channels under the write lock,
// so a send can never race a close.
func (h *Hub) Publish(accountID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[accountID] {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("account_id", accountID).
				Str("event_type", event.Type).
				Msg("Dropped event for slow live session")
		}
	}
}

// Unsubscribe removes a live session and closes its channel.
func (h *Hub) Unsubscribe(accountID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[accountID]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(h.subscribers, accountID)
	}

	log.Debug().
		Str("account_id", accountID).
		Str("sub_id", subID).
		Msg("Live session unsubscribed")
}

// SubscriberCount returns the number of live sessions for an account.
func (h *Hub) SubscriberCount(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[accountID])
}

// Close shuts down the hub and closes every session channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for accountID, subs := range h.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(h.subscribers, accountID)
	}
}
