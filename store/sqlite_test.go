package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "helpdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, id string) *User {
	t.Helper()

	user := &User{
		ID:           id,
		Name:         "Agent " + id,
		Email:        id + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func seedPage(t *testing.T, s *SQLiteStore, userID, pageID string) *Page {
	t.Helper()

	now := time.Now().UTC()
	page := &Page{
		ID:          "link-" + pageID,
		UserID:      userID,
		PageID:      pageID,
		PageName:    "Page " + pageID,
		AccessToken: "token-" + pageID,
		Status:      PageStatusConnected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreatePage(context.Background(), page))
	return page
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func conversationParams(pageID, customerID string, at time.Time) FindOrCreateConversationParams {
	return FindOrCreateConversationParams{
		PageID:        pageID,
		CustomerID:    customerID,
		CustomerName:  "Jane Customer",
		OccurredAt:    at,
		SessionWindow: 24 * time.Hour,
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")

	err := s.CreateUser(context.Background(), &User{
		ID:           "u2",
		Name:         "Other",
		Email:        "u1@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")

	user, err := s.GetUserByEmail(context.Background(), "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = s.GetUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePage_AlreadyLinked(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedPage(t, s, "u1", "page-1")

	now := time.Now().UTC()
	err := s.CreatePage(context.Background(), &Page{
		ID:          "link-other",
		UserID:      "u2",
		PageID:      "page-1",
		PageName:    "Same Page",
		AccessToken: "other-token",
		Status:      PageStatusConnected,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	assert.ErrorIs(t, err, ErrDuplicatePage)
}

func TestDisconnectAndReconnectPage(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1")
	page := seedPage(t, s, "u1", "page-1")

	require.NoError(t, s.DisconnectPage(context.Background(), page.ID))

	got, err := s.GetPageByPageID(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, PageStatusDisconnected, got.Status)

	pages, err := s.ListConnectedPages(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, pages)

	require.NoError(t, s.ReconnectPage(context.Background(), page.ID, "rotated-token"))

	got, err = s.GetPageByPageID(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, PageStatusConnected, got.Status)
	assert.Equal(t, "rotated-token", got.AccessToken)

	pages, err = s.ListConnectedPages(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestDisconnectPage_Missing(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.DisconnectPage(context.Background(), "no-such-link"), ErrNotFound)
	assert.ErrorIs(t, s.ReconnectPage(context.Background(), "no-such-link", "token"), ErrNotFound)
}

func TestFindOrCreateConversation_ReusesWithinWindow(t *testing.T) {
	s := newTestStore(t)

	first, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ConversationStatusOpen, first.Status)
	assert.Equal(t, base, first.LastMessageAt)

	second, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base.Add(23*time.Hour)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateConversation_ExactWindowBoundaryReuses(t *testing.T) {
	s := newTestStore(t)

	first, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	second, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateConversation_GapOverWindowCreatesNew(t *testing.T) {
	s := newTestStore(t)

	first, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	second, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base.Add(25*time.Hour)))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	// Old conversation is untouched.
	old, err := s.GetConversation(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, base, old.LastMessageAt)
	assert.Equal(t, ConversationStatusOpen, old.Status)
}

func TestFindOrCreateConversation_ScopedByPageAndCustomer(t *testing.T) {
	s := newTestStore(t)

	a, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	b, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-2", base))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)

	c, created, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-2", "cust-1", base))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestFindOrCreateConversation_ConcurrentFirstContact(t *testing.T) {
	s := newTestStore(t)

	const workers = 8
	ids := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}

	list, err := s.ListConversationsByPage(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAdvanceLastMessageAt_Monotonic(t *testing.T) {
	s := newTestStore(t)

	conv, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	require.NoError(t, s.AdvanceLastMessageAt(context.Background(), conv.ID, base.Add(time.Hour)))

	got, err := s.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), got.LastMessageAt)

	// An older timestamp is a no-op.
	require.NoError(t, s.AdvanceLastMessageAt(context.Background(), conv.ID, base.Add(30*time.Minute)))

	got, err = s.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), got.LastMessageAt)
}

func TestListConversationsByPage_NewestActivityFirst(t *testing.T) {
	s := newTestStore(t)

	older, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	newer, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-2", base.Add(time.Hour)))
	require.NoError(t, err)

	list, err := s.ListConversationsByPage(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestInsertMessage_Idempotent(t *testing.T) {
	s := newTestStore(t)

	conv, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	msg := &Message{
		ID:             "row-1",
		ConversationID: conv.ID,
		MessageID:      "m1",
		Direction:      DirectionInbound,
		SenderID:       "cust-1",
		Content:        "hi",
		Timestamp:      base,
	}

	inserted, created, err := s.InsertMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "row-1", inserted.ID)

	// Same provider message id, different row id: the original row wins.
	dup := &Message{
		ID:             "row-2",
		ConversationID: conv.ID,
		MessageID:      "m1",
		Direction:      DirectionInbound,
		SenderID:       "cust-1",
		Content:        "hi again",
		Timestamp:      base.Add(time.Minute),
	}

	existing, created, err := s.InsertMessage(context.Background(), dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "row-1", existing.ID)
	assert.Equal(t, "hi", existing.Content)

	messages, err := s.ListMessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestListMessagesByConversation_OrderedByTimestamp(t *testing.T) {
	s := newTestStore(t)

	conv, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	for i, m := range []struct {
		id string
		at time.Time
	}{
		{"m-second", base.Add(2 * time.Minute)},
		{"m-first", base.Add(1 * time.Minute)},
		{"m-third", base.Add(3 * time.Minute)},
	} {
		_, _, err := s.InsertMessage(context.Background(), &Message{
			ID:             newID(),
			ConversationID: conv.ID,
			MessageID:      m.id,
			Direction:      DirectionInbound,
			SenderID:       "cust-1",
			Content:        "msg",
			Timestamp:      m.at,
		})
		require.NoError(t, err, "inserting message %d", i)
	}

	messages, err := s.ListMessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "m-first", messages[0].MessageID)
	assert.Equal(t, "m-second", messages[1].MessageID)
	assert.Equal(t, "m-third", messages[2].MessageID)
}

func TestMarkConversationRead(t *testing.T) {
	s := newTestStore(t)

	conv, _, err := s.FindOrCreateConversation(context.Background(), conversationParams("page-1", "cust-1", base))
	require.NoError(t, err)

	_, _, err = s.InsertMessage(context.Background(), &Message{
		ID: newID(), ConversationID: conv.ID, MessageID: "m1",
		Direction: DirectionInbound, SenderID: "cust-1", Content: "hi", Timestamp: base,
	})
	require.NoError(t, err)

	_, _, err = s.InsertMessage(context.Background(), &Message{
		ID: newID(), ConversationID: conv.ID, MessageID: "m2",
		Direction: DirectionOutbound, SenderID: "u1", Content: "hello", Timestamp: base.Add(time.Minute), Read: true,
	})
	require.NoError(t, err)

	require.NoError(t, s.MarkConversationRead(context.Background(), conv.ID))

	messages, err := s.ListMessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, msg := range messages {
		assert.True(t, msg.Read)
	}
}
