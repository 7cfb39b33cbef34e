package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gochats/internal/chat/service"
	"gochats/internal/common"
	"gochats/internal/dbmongo"
)

// memoryRepo stores messages in a map and mirrors the mongo repository's error contract.
type memoryRepo struct {
	mu   sync.Mutex
	msgs map[primitive.ObjectID]dbmongo.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{msgs: make(map[primitive.ObjectID]dbmongo.Message)}
}

func (m *memoryRepo) Save(_ context.Context, msg *dbmongo.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	m.msgs[msg.ID] = *msg
	return nil
}

func (m *memoryRepo) FetchChat(_ context.Context, a, b string) ([]*dbmongo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*dbmongo.Message, 0)
	for _, msg := range m.msgs {
		if (msg.WriterUserID == a && msg.ReceiverUserID == b) || (msg.WriterUserID == b && msg.ReceiverUserID == a) {
			msg := msg
			out = append(out, &msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShippingDate.Equal(out[j].ShippingDate) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].ShippingDate.Before(out[j].ShippingDate)
	})
	return out, nil
}

func (m *memoryRepo) lookup(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return oid, common.NotFoundError(fmt.Sprintf("Message with id: %s not found", id), err)
	}
	if _, ok := m.msgs[oid]; !ok {
		return oid, common.NotFoundError(fmt.Sprintf("Message with id: %s not found", id), nil)
	}
	return oid, nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (*dbmongo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	msg := m.msgs[oid]
	return &msg, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id string, status dbmongo.MessageStatus) (*dbmongo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	msg := m.msgs[oid]
	msg.MessageStatus = status
	m.msgs[oid] = msg
	return &msg, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) (*dbmongo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	msg := m.msgs[oid]
	delete(m.msgs, oid)
	return &msg, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []common.NotificationEvent
}

func (n *recordingNotifier) Notify(ev common.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func TestPipeline_MessageLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	router := newTestRouter(t, service.NewChatService(repo, notifier, "CHATS"), 1000)
	pro := tokenFor(t, "pro")

	before := time.Now().Add(-time.Second)
	rec, env := do(t, router, http.MethodPost, "/api/v1/message", pro,
		map[string]string{"writerUserId": "user1", "receiverUserId": "user2", "messageContent": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dbmongo.Message
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "user1", created.WriterUserID)
	assert.Equal(t, dbmongo.StatusUnread, created.MessageStatus)
	assert.True(t, created.ShippingDate.After(before))
	assert.False(t, created.ID.IsZero())

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "user2", notifier.events[0].UserID)

	id := created.ID.Hex()

	rec, env = do(t, router, http.MethodPut, "/api/v1/message/messageStatus/"+id, pro, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated dbmongo.Message
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, dbmongo.StatusRead, updated.MessageStatus)

	// idempotent
	rec, env = do(t, router, http.MethodPut, "/api/v1/message/messageStatus/"+id, pro, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var again dbmongo.Message
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, updated, again)

	rec, _ = do(t, router, http.MethodDelete, "/api/v1/message/"+id, pro, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	rec, env = do(t, router, http.MethodDelete, "/api/v1/message/"+id, pro, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.AppCode)

	rec, env = do(t, router, http.MethodPut, "/api/v1/message/messageStatus/"+id, pro, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.AppCode)
}

func TestPipeline_MalformedIDIsNotFound(t *testing.T) {
	router := newTestRouter(t, service.NewChatService(newMemoryRepo(), nil, "CHATS"), 1000)
	pro := tokenFor(t, "pro")

	rec, env := do(t, router, http.MethodPut, "/api/v1/message/messageStatus/invalid-id", pro, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.AppCode)

	rec, env = do(t, router, http.MethodDelete, "/api/v1/message/invalid-id", pro, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.AppCode)
}

func TestPipeline_ChatIsSymmetricAndOrdered(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, service.NewChatService(repo, nil, "CHATS"), 1000)
	pro := tokenFor(t, "pro")

	for _, body := range []map[string]string{
		{"writerUserId": "user1", "receiverUserId": "user2", "messageContent": "one"},
		{"writerUserId": "user2", "receiverUserId": "user1", "messageContent": "two"},
		{"writerUserId": "user1", "receiverUserId": "user3", "messageContent": "other chat"},
		{"writerUserId": "user1", "receiverUserId": "user2", "messageContent": "three"},
	} {
		rec, _ := do(t, router, http.MethodPost, "/api/v1/message", pro, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		time.Sleep(2 * time.Millisecond)
	}

	fetch := func(a, b string) []dbmongo.Message {
		rec, env := do(t, router, http.MethodGet, "/api/v1/chat/"+a+"/"+b, pro, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []dbmongo.Message
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		return msgs
	}

	forward := fetch("user1", "user2")
	backward := fetch("user2", "user1")
	require.Len(t, forward, 3)
	assert.Equal(t, forward, backward)

	contents := []string{forward[0].MessageContent, forward[1].MessageContent, forward[2].MessageContent}
	assert.Equal(t, []string{"one", "two", "three"}, contents)
	for i := 1; i < len(forward); i++ {
		assert.False(t, forward[i].ShippingDate.Before(forward[i-1].ShippingDate))
	}

	assert.Empty(t, fetch("user2", "user3"))
}

func TestPipeline_RateLimitWindow(t *testing.T) {
	logger := common.DiscardLogger()
	er := common.NewErrorResponder(logger, true)
	limiter := common.NewRateLimiter(50*time.Millisecond, 2)
	h := NewChatHandler(service.NewChatService(newMemoryRepo(), nil, "CHATS"), er, logger)
	router := NewRouter(testConfig(), h, limiter, er, logger)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, router, http.MethodGet, "/api/v1/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := do(t, router, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	time.Sleep(60 * time.Millisecond)
	rec, _ = do(t, router, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
