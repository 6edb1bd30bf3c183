package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/realtime"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

// SessionWindow is the gap after which a new message opens a fresh
// conversation instead of extending the previous one. The comparison is
// strictly greater-than: a gap of exactly 24 hours reuses the conversation.
const SessionWindow = 24 * time.Hour

// Engine threads inbound Messenger events into conversations and handles
// outbound agent replies. All of its collaborators are injected.
type Engine struct {
	store    StoreInterface
	resolver ProfileResolverInterface
	sender   SenderInterface
	hub      HubInterface
}

func NewEngine(st StoreInterface, resolver ProfileResolverInterface, sender SenderInterface, hub HubInterface) *Engine {
	return &Engine{
		store:    st,
		resolver: resolver,
		sender:   sender,
		hub:      hub,
	}
}

// Ingest processes one normalized inbound event: authorize the page,
// resolve or open a conversation under the session-window rule, persist the
// message idempotently, advance the conversation timestamp and fan the
// update out to the owning account's live sessions.
func (e *Engine) Ingest(ctx context.Context, event InboundEvent) (*Result, error) {
	page, err := e.store.GetPageByPageID(ctx, event.PageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().
				Str("page_id", event.PageID).
				Str("message_id", event.MessageID).
				Msg("Dropping event: page not connected")
			return nil, ErrPageNotConnected
		}
		return nil, fmt.Errorf("looking up page: %w", err)
	}
	if page.Status != store.PageStatusConnected {
		log.Warn().
			Str("page_id", event.PageID).
			Str("message_id", event.MessageID).
			Msg("Dropping event: page not connected")
		return nil, ErrPageNotConnected
	}

	customerProfile := e.resolver.Resolve(ctx, event.CustomerID, page.AccessToken)

	conv, created, err := e.store.FindOrCreateConversation(ctx, store.FindOrCreateConversationParams{
		PageID:          event.PageID,
		CustomerID:      event.CustomerID,
		CustomerName:    customerProfile.Name,
		CustomerPicture: customerProfile.PictureURL,
		OccurredAt:      event.OccurredAt,
		SessionWindow:   SessionWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	msg, inserted, err := e.store.InsertMessage(ctx, &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		MessageID:      event.MessageID,
		Direction:      store.DirectionInbound,
		SenderID:       event.CustomerID,
		Content:        event.Text,
		Timestamp:      event.OccurredAt,
		Read:           false,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	if !inserted {
		// Redelivered webhook. The message is already persisted and was
		// already pushed once; don't fan it out again. A redelivery that
		// arrives after the session window has passed leaves behind the
		// fresh (empty) conversation opened above; that stray thread is
		// accepted rather than probing the message id on every event.
		return &Result{Conversation: conv, Message: msg, Duplicate: true}, nil
	}

	if !created {
		if err := e.store.AdvanceLastMessageAt(ctx, conv.ID, event.OccurredAt); err != nil {
			return nil, fmt.Errorf("advancing conversation timestamp: %w", err)
		}
		if event.OccurredAt.After(conv.LastMessageAt) {
			conv.LastMessageAt = event.OccurredAt
		}
	}

	log.Info().
		Str("page_id", event.PageID).
		Str("customer_id", event.CustomerID).
		Str("conversation_id", conv.ID).
		Bool("new_conversation", created).
		Msg("Inbound message processed")

	e.hub.Publish(page.UserID, realtime.Event{
		Type:         realtime.EventTypeNewMessage,
		Conversation: conv,
		Message:      msg,
	})

	return &Result{Conversation: conv, Message: msg}, nil
}

// SendReply dispatches an agent reply through the Send API and persists it.
// Nothing is persisted if the provider dispatch fails.
func (e *Engine) SendReply(ctx context.Context, conversationID, userID, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}

	conv, err := e.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	page, err := e.store.GetPageByPageID(ctx, conv.PageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPageNotConnected
		}
		return nil, fmt.Errorf("looking up page: %w", err)
	}
	if page.Status != store.PageStatusConnected {
		return nil, ErrPageNotConnected
	}

	if page.UserID != userID {
		return nil, ErrUnauthorized
	}

	response, err := e.sender.SendTextMessage(ctx, page.PageID, page.AccessToken, conv.CustomerID, content)
	if err != nil {
		log.Error().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("Provider dispatch failed")
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	now := time.Now().UTC()
	msg, _, err := e.store.InsertMessage(ctx, &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		MessageID:      response.MessageID,
		Direction:      store.DirectionOutbound,
		SenderID:       userID,
		Content:        content,
		Timestamp:      now,
		Read:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	if err := e.store.AdvanceLastMessageAt(ctx, conv.ID, now); err != nil {
		return nil, fmt.Errorf("advancing conversation timestamp: %w", err)
	}
	if now.After(conv.LastMessageAt) {
		conv.LastMessageAt = now
	}

	log.Info().
		Str("conversation_id", conv.ID).
		Str("message_id", response.MessageID).
		Msg("Reply sent")

	e.hub.Publish(page.UserID, realtime.Event{
		Type:         realtime.EventTypeMessageSent,
		Conversation: conv,
		Message:      msg,
	})

	return msg, nil
}
