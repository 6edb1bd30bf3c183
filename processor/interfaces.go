package processor

import (
	"context"
	"time"

	"github.com/aman-1511/Facebook-Helpdesk/facebook"
	"github.com/aman-1511/Facebook-Helpdesk/profile"
	"github.com/aman-1511/Facebook-Helpdesk/realtime"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

// StoreInterface is the slice of the store the engine needs.
type StoreInterface interface {
	GetPageByPageID(ctx context.Context, pageID string) (*store.Page, error)
	FindOrCreateConversation(ctx context.Context, params store.FindOrCreateConversationParams) (*store.Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	AdvanceLastMessageAt(ctx context.Context, conversationID string, ts time.Time) error
	InsertMessage(ctx context.Context, msg *store.Message) (*store.Message, bool, error)
}

// ProfileResolverInterface resolves customer display profiles.
type ProfileResolverInterface interface {
	Resolve(ctx context.Context, customerID, accessToken string) profile.Profile
}

// SenderInterface dispatches outbound messages to the provider.
type SenderInterface interface {
	SendTextMessage(ctx context.Context, pageID, accessToken, recipientID, text string) (*facebook.SendMessageResponse, error)
}

// HubInterface pushes events to live agent sessions.
type HubInterface interface {
	Publish(accountID string, event realtime.Event)
}
