package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when registering an email that is already taken.
var ErrDuplicateUser = errors.New("user already exists")

// ErrDuplicatePage is returned when connecting a page that is already
// connected by another account. A Facebook page maps to exactly one account.
var ErrDuplicatePage = errors.New("page already connected")

// Page status values.
const (
	PageStatusConnected    = "connected"
	PageStatusDisconnected = "disconnected"
)

// Conversation status values.
const (
	ConversationStatusOpen   = "open"
	ConversationStatusClosed = "closed"
)

// Message directions.
const (
	DirectionInbound  = "inbound"  // customer -> page
	DirectionOutbound = "outbound" // agent -> customer
)

// User is an agent account that owns connected pages.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page links a Facebook page to the owning agent account. The access token
// is the credential for the Graph API and never leaves the server.
type Page struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PageID      string    `json:"page_id"`
	PageName    string    `json:"page_name"`
	AccessToken string    `json:"-"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Conversation is one windowed messaging session between a page and a
// customer. A (page, customer) pair can have several conversations over
// time; a gap longer than the session window starts a new one.
type Conversation struct {
	ID              string    `json:"id"`
	PageID          string    `json:"page_id"`
	CustomerID      string    `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPicture string    `json:"customer_picture,omitempty"`
	LastMessageAt   time.Time `json:"last_message_at"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Message is a single message inside a conversation. MessageID is the
// provider-assigned id and is globally unique; redelivered webhooks must
// not create a second row.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Direction      string    `json:"direction"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

// FindOrCreateConversationParams carries everything needed to resolve the
// conversation for an inbound message in a single atomic step.
type FindOrCreateConversationParams struct {
	PageID          string
	CustomerID      string
	CustomerName    string
	CustomerPicture string
	OccurredAt      time.Time
	// SessionWindow is the maximum gap since the last message before a new
	// conversation is opened. Strictly greater-than: a gap of exactly
	// SessionWindow reuses the existing conversation.
	SessionWindow time.Duration
}

// Store defines the persistence operations for the helpdesk.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Pages
	CreatePage(ctx context.Context, page *Page) error
	GetPageByPageID(ctx context.Context, pageID string) (*Page, error)
	GetPageForUser(ctx context.Context, userID, pageID string) (*Page, error)
	ListConnectedPages(ctx context.Context, userID string) ([]*Page, error)
	ReconnectPage(ctx context.Context, id, accessToken string) error
	DisconnectPage(ctx context.Context, id string) error

	// Conversations. FindOrCreateConversation is atomic: two concurrent
	// events for the same (page, customer) pair cannot both open a new
	// conversation. The returned bool reports whether a new conversation
	// was created.
	FindOrCreateConversation(ctx context.Context, params FindOrCreateConversationParams) (*Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversationsByPage(ctx context.Context, pageID string) ([]*Conversation, error)
	// AdvanceLastMessageAt only ever moves the timestamp forward. An older
	// timestamp (out-of-order delivery) is a no-op.
	AdvanceLastMessageAt(ctx context.Context, conversationID string, ts time.Time) error

	// Messages. InsertMessage is an idempotent upsert keyed on the
	// provider message id: if a message with the same MessageID already
	// exists, the existing row is returned and the bool is false.
	InsertMessage(ctx context.Context, msg *Message) (*Message, bool, error)
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]*Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error

	Close() error
}
