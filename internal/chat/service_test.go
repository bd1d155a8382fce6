package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akravets/coinboard/internal/adapters/llm"
	"github.com/akravets/coinboard/pkg/models"
)

type fakeStore struct {
	chats    map[string]*models.Chat
	messages []models.Message
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{chats: make(map[string]*models.Chat)}
}

func (f *fakeStore) CreateChat(_ context.Context, userID, title string) (*models.Chat, error) {
	f.nextID++
	chat := &models.Chat{ID: fmt.Sprintf("chat-%d", f.nextID), UserID: userID, Title: title}
	f.chats[chat.ID] = chat
	return chat, nil
}

func (f *fakeStore) GetChat(_ context.Context, chatID string) (*models.Chat, error) {
	chat, ok := f.chats[chatID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return chat, nil
}

func (f *fakeStore) ListChats(_ context.Context, userID string) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) AddMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.nextID++
	saved := *msg
	saved.ID = fmt.Sprintf("msg-%d", f.nextID)
	f.messages = append(f.messages, saved)
	return &saved, nil
}

func (f *fakeStore) ListMessages(_ context.Context, chatID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCompleter struct {
	reply     string
	deltas    []string
	streamErr error
	gotTurns  []llm.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, turns []llm.Turn) (string, error) {
	f.gotTurns = turns
	return f.reply, nil
}

func (f *fakeCompleter) Stream(_ context.Context, _ string, turns []llm.Turn, onDelta func(string) error) (string, error) {
	f.gotTurns = turns
	var full string
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return "", err
		}
		full += d
	}
	if f.streamErr != nil {
		return "", f.streamErr
	}
	return full, nil
}

type fakeGraphs struct {
	visualizations []models.Visualization
}

func (f *fakeGraphs) BuildVisualizations(_ context.Context, _ string) []models.Visualization {
	return f.visualizations
}

type fakeUniverse struct{}

func (fakeUniverse) AvailableAssets(_ context.Context) ([]models.AssetSummary, error) {
	return []models.AssetSummary{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}, nil
}

func newTestService(store *fakeStore, completer *fakeCompleter, graphs *fakeGraphs) *Service {
	return NewService(store, completer, graphs, fakeUniverse{})
}

func TestSendMessage_SavesBothTurns(t *testing.T) {
	store := newFakeStore()
	chat, err := store.CreateChat(context.Background(), "user-1", "test")
	require.NoError(t, err)

	completer := &fakeCompleter{reply: "BTC is up.\n```graph-data\nbitcoin_price_7d\n```\n"}
	viz := models.Visualization{Directive: "bitcoin_price_7d", AssetID: "bitcoin"}
	svc := newTestService(store, completer, &fakeGraphs{visualizations: []models.Visualization{viz}})

	saved, err := svc.SendMessage(context.Background(), chat.ID, "user-1", "how is btc?")
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, saved.Role)
	assert.Equal(t, "BTC is up.", saved.Content)
	require.Len(t, saved.Visualizations, 1)
	assert.Equal(t, "bitcoin_price_7d", saved.Visualizations[0].Directive)

	msgs, err := store.ListMessages(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "how is btc?", msgs[0].Content)

	// The user turn must be part of the prompt sent to the model.
	require.NotEmpty(t, completer.gotTurns)
	assert.Equal(t, "how is btc?", completer.gotTurns[len(completer.gotTurns)-1].Content)
}

func TestSendMessage_WrongOwnerLooksLikeMissing(t *testing.T) {
	store := newFakeStore()
	chat, err := store.CreateChat(context.Background(), "user-1", "test")
	require.NoError(t, err)

	svc := newTestService(store, &fakeCompleter{reply: "hi"}, &fakeGraphs{})

	_, err = svc.SendMessage(context.Background(), chat.ID, "user-2", "hello")
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, err = svc.SendMessage(context.Background(), "no-such-chat", "user-1", "hello")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestStreamMessage_EventOrder(t *testing.T) {
	store := newFakeStore()
	chat, err := store.CreateChat(context.Background(), "user-1", "test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"BTC ", "is ", "up."}}
	viz := models.Visualization{Directive: "bitcoin_price_7d", AssetID: "bitcoin"}
	svc := newTestService(store, completer, &fakeGraphs{visualizations: []models.Visualization{viz}})

	var events []models.StreamEvent
	err = svc.StreamMessage(context.Background(), chat.ID, "user-1", "how is btc?", func(ev models.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 6)
	assert.Equal(t, models.EventStart, events[0].Type)
	assert.Equal(t, models.EventContent, events[1].Type)
	assert.Equal(t, "BTC ", events[1].Content)
	assert.Equal(t, models.EventContent, events[2].Type)
	assert.Equal(t, models.EventContent, events[3].Type)
	assert.Equal(t, models.EventVisualization, events[4].Type)
	require.NotNil(t, events[4].Visualization)
	assert.Equal(t, "bitcoin_price_7d", events[4].Visualization.Directive)
	assert.Equal(t, models.EventComplete, events[5].Type)
	assert.NotEmpty(t, events[5].MessageID)
}

func TestStreamMessage_ErrorEventOnStreamFailure(t *testing.T) {
	store := newFakeStore()
	chat, err := store.CreateChat(context.Background(), "user-1", "test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"BTC "}, streamErr: errors.New("upstream hung up")}
	svc := newTestService(store, completer, &fakeGraphs{})

	var events []models.StreamEvent
	err = svc.StreamMessage(context.Background(), chat.ID, "user-1", "how is btc?", func(ev models.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.Error(t, err)

	last := events[len(events)-1]
	assert.Equal(t, models.EventError, last.Type)
	assert.NotEmpty(t, last.Error)

	for _, ev := range events {
		assert.NotEqual(t, models.EventComplete, ev.Type)
	}
}

func TestStripOrRaw(t *testing.T) {
	assert.Equal(t, "BTC is up.", stripOrRaw("BTC is up.\n```graph-data\nbitcoin_price_7d\n```\n"))

	// A reply that is nothing but a directive block ships raw rather than empty.
	raw := "```graph-data\nbitcoin_price_7d\n```"
	assert.Equal(t, raw, stripOrRaw(raw))

	assert.Equal(t, "plain text", stripOrRaw("plain text"))
}
