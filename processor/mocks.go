package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aman-1511/Facebook-Helpdesk/facebook"
	"github.com/aman-1511/Facebook-Helpdesk/profile"
	"github.com/aman-1511/Facebook-Helpdesk/realtime"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

// MockStore is an in-memory StoreInterface implementation for tests. It
// mirrors the SQLite store's windowing, idempotency and monotonicity
// behavior without a database.
type MockStore struct {
	mu            sync.Mutex
	pages         map[string]*store.Page         // keyed by external page id
	conversations map[string]*store.Conversation // keyed by conversation id
	messages      map[string]*store.Message      // keyed by provider message id
}

func NewMockStore() *MockStore {
	return &MockStore{
		pages:         make(map[string]*store.Page),
		conversations: make(map[string]*store.Conversation),
		messages:      make(map[string]*store.Message),
	}
}

// AddPage seeds a page link.
func (m *MockStore) AddPage(page *store.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.PageID] = page
}

func (m *MockStore) GetPageByPageID(ctx context.Context, pageID string) (*store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.pages[pageID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *page
	return &copied, nil
}

func (m *MockStore) FindOrCreateConversation(ctx context.Context, params store.FindOrCreateConversationParams) (*store.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *store.Conversation
	for _, conv := range m.conversations {
		if conv.PageID != params.PageID || conv.CustomerID != params.CustomerID {
			continue
		}
		if latest == nil || conv.LastMessageAt.After(latest.LastMessageAt) {
			latest = conv
		}
	}

	if latest != nil && params.OccurredAt.Sub(latest.LastMessageAt) <= params.SessionWindow {
		copied := *latest
		return &copied, false, nil
	}

	created := &store.Conversation{
		ID:              uuid.New().String(),
		PageID:          params.PageID,
		CustomerID:      params.CustomerID,
		CustomerName:    params.CustomerName,
		CustomerPicture: params.CustomerPicture,
		LastMessageAt:   params.OccurredAt,
		Status:          store.ConversationStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}
	m.conversations[created.ID] = created

	copied := *created
	return &copied, true, nil
}

func (m *MockStore) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *MockStore) AdvanceLastMessageAt(ctx context.Context, conversationID string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return store.ErrNotFound
	}
	if ts.After(conv.LastMessageAt) {
		conv.LastMessageAt = ts
	}
	return nil
}

func (m *MockStore) InsertMessage(ctx context.Context, msg *store.Message) (*store.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.messages[msg.MessageID]; ok {
		copied := *existing
		return &copied, false, nil
	}

	copied := *msg
	m.messages[msg.MessageID] = &copied

	result := copied
	return &result, true, nil
}

// MessageCount returns the number of distinct persisted messages.
func (m *MockStore) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// ConversationCount returns the number of conversations.
func (m *MockStore) ConversationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// MockResolver returns a fixed profile, or the fallback when failing.
type MockResolver struct {
	Profile profile.Profile
	Fail    bool
}

func (m *MockResolver) Resolve(ctx context.Context, customerID, accessToken string) profile.Profile {
	if m.Fail {
		return profile.Profile{Name: profile.FallbackName}
	}
	return m.Profile
}

// MockSender records outbound dispatches and can be made to fail.
type MockSender struct {
	mu    sync.Mutex
	Err   error
	calls []string
	seq   int
}

func (m *MockSender) SendTextMessage(ctx context.Context, pageID, accessToken, recipientID, text string) (*facebook.SendMessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	m.calls = append(m.calls, text)
	m.seq++
	return &facebook.SendMessageResponse{
		RecipientID: recipientID,
		MessageID:   fmt.Sprintf("m_sent_%d", m.seq),
	}, nil
}

// Calls returns the dispatched message texts.
func (m *MockSender) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockHub records published events.
type MockHub struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	AccountID string
	Event     realtime.Event
}

func (m *MockHub) Publish(accountID string, event realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{AccountID: accountID, Event: event})
}

// Events returns the published events in order.
func (m *MockHub) Events() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.events...)
}
