package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/internal/adapters/llm"
	"github.com/akravets/coinboard/internal/chat"
	"github.com/akravets/coinboard/internal/graphs"
	"github.com/akravets/coinboard/internal/market"
	"github.com/akravets/coinboard/internal/users"
	"github.com/akravets/coinboard/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes -----------------------------------------------------------------

type fakeAssetStore struct {
	assets []models.Asset
}

func (f *fakeAssetStore) ListAssets(_ context.Context) ([]models.Asset, error) {
	return f.assets, nil
}

func (f *fakeAssetStore) GetAsset(_ context.Context, id string) (*models.Asset, error) {
	for i := range f.assets {
		if f.assets[i].ID == id {
			return &f.assets[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAssetStore) ListSummaries(_ context.Context) ([]models.AssetSummary, error) {
	summaries := make([]models.AssetSummary, 0, len(f.assets))
	for _, a := range f.assets {
		summaries = append(summaries, models.AssetSummary{ID: a.ID, Symbol: a.Symbol, Name: a.Name})
	}
	return summaries, nil
}

type fakeChartFetcher struct{}

func (fakeChartFetcher) MarketChart(_ context.Context, _ string, _ int) (*coingecko.MarketChart, error) {
	return &coingecko.MarketChart{
		Prices:     [][]float64{{1e12, 100}, {1e12 + 3600000, 110}},
		MarketCaps: [][]float64{{1e12, 2e9}},
	}, nil
}

func (fakeChartFetcher) OHLC(_ context.Context, _ string, _ int) ([][]float64, error) {
	return [][]float64{{1e12, 100, 115, 95, 110}}, nil
}

type fakeChatStore struct {
	chats    map[string]*models.Chat
	messages []models.Message
	nextID   int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: make(map[string]*models.Chat)}
}

func (f *fakeChatStore) CreateChat(_ context.Context, userID, title string) (*models.Chat, error) {
	f.nextID++
	created := &models.Chat{ID: fmt.Sprintf("chat-%d", f.nextID), UserID: userID, Title: title}
	f.chats[created.ID] = created
	return created, nil
}

func (f *fakeChatStore) GetChat(_ context.Context, chatID string) (*models.Chat, error) {
	if chat, ok := f.chats[chatID]; ok {
		return chat, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeChatStore) ListChats(_ context.Context, userID string) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChatStore) AddMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.nextID++
	saved := *msg
	saved.ID = fmt.Sprintf("msg-%d", f.nextID)
	f.messages = append(f.messages, saved)
	return &saved, nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, chatID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeLLM struct {
	deltas []string
}

func (f *fakeLLM) Complete(_ context.Context, _ string, _ []llm.Turn) (string, error) {
	return strings.Join(f.deltas, ""), nil
}

func (f *fakeLLM) Stream(_ context.Context, _ string, _ []llm.Turn, onDelta func(string) error) (string, error) {
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return "", err
		}
	}
	return strings.Join(f.deltas, ""), nil
}

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	nextID  int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*models.User), byID: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, name, passwordHash string) (*models.User, error) {
	if _, taken := f.byEmail[email]; taken {
		return nil, users.ErrEmailTaken
	}
	f.nextID++
	user := &models.User{ID: fmt.Sprintf("user-%d", f.nextID), Email: email, Name: name, PasswordHash: passwordHash}
	f.byEmail[email] = user
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserStore) SavePasswordReset(_ context.Context, _ *models.PasswordReset) error {
	return nil
}

func (f *fakeUserStore) GetPasswordReset(_ context.Context, _ string) (*models.PasswordReset, error) {
	return nil, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, _, _ string) error {
	return nil
}

type fakeNews struct{}

func (fakeNews) ListRecent(_ context.Context, limit int) ([]models.NewsArticle, error) {
	return []models.NewsArticle{{ExternalID: "coindesk_1", Title: "Bitcoin Rallies"}}, nil
}

type okHealth struct{}

func (okHealth) Health() error { return nil }

type silentMailer struct{}

func (silentMailer) SendPasswordReset(_ context.Context, _, _ string) error { return nil }

// --- harness ---------------------------------------------------------------

type testEnv struct {
	router    *gin.Engine
	chatStore *fakeChatStore
}

func newTestEnv(t *testing.T, deltas []string) *testEnv {
	t.Helper()

	price := 100.0
	rank := 1
	assetStore := &fakeAssetStore{assets: []models.Asset{{
		ID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
		CurrentPrice: price, MarketCapRank: rank,
		Sparkline7d: []float64{100, 101, 102},
		LastFetched: time.Now(),
	}}}

	marketSvc := market.NewService(assetStore, market.NewSnapshotCache(), time.Hour, nil)
	graphsSvc := graphs.NewService(fakeChartFetcher{}, assetStore)

	chatStore := newFakeChatStore()
	chatSvc := chat.NewService(chatStore, &fakeLLM{deltas: deltas}, graphsSvc, marketSvc)

	usersSvc := users.NewService(
		newFakeUserStore(),
		users.BcryptHasher{Cost: 4},
		users.NewJWTIssuer("test-secret", time.Hour),
		silentMailer{},
		time.Hour,
	)

	server := NewServer(marketSvc, graphsSvc, nil, chatSvc, usersSvc, fakeNews{}, 30, NewPriceHub(), okHealth{})
	return &testEnv{router: server.Router([]string{"*"}), chatStore: chatStore}
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T) string {
	t.Helper()
	rec := e.do("POST", "/api/auth/register", "", gin.H{
		"email": "ada@example.com", "name": "Ada", "password": "hunter2222",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// --- tests -----------------------------------------------------------------

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do("GET", "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCryptos(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/crypto/cryptos", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "bitcoin", assets[0].ID)
}

func TestGraphDetailsValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/crypto/bitcoin/graph-details?period=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("GET", "/api/crypto/bitcoin/graph-details?period=7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var details models.GraphDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Len(t, details.PriceData, 2)
	assert.Len(t, details.OHLCData, 1)
}

func TestChatRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/chat", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do("GET", "/api/chat", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t)

	rec := env.do("GET", "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.com")

	rec = env.do("POST", "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do("POST", "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "hunter2222"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatSendMessage(t *testing.T) {
	env := newTestEnv(t, []string{"BTC is up."})
	token := env.register(t)

	rec := env.do("POST", "/api/chat", token, gin.H{"title": "markets"})
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do("POST", "/api/chat/"+created.ID+"/messages", token, gin.H{"content": "how is btc?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "BTC is up.", reply.Content)

	rec = env.do("POST", "/api/chat/no-such-chat/messages", token, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatStreamEmitsSSE(t *testing.T) {
	env := newTestEnv(t, []string{"BTC ", "is up."})
	token := env.register(t)

	rec := env.do("POST", "/api/chat", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do("GET", "/api/chat/"+created.ID+"/messages/stream?content=how+is+btc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var types []models.StreamEventType
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		types = append(types, ev.Type)
	}

	require.GreaterOrEqual(t, len(types), 4)
	assert.Equal(t, models.EventStart, types[0])
	assert.Equal(t, models.EventContent, types[1])
	assert.Equal(t, models.EventComplete, types[len(types)-1])

	// Missing content parameter is a 400 before any stream opens.
	rec = env.do("GET", "/api/chat/"+created.ID+"/messages/stream", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/news", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bitcoin Rallies")
}

func TestIndicatorGraphRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/crypto/bitcoin/indicator-graph/macd", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
