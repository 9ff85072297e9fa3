package chat

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/domain/render"
	"github.com/matiasleandrokruk/genhub/internal/infra/eventbus"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
	"github.com/matiasleandrokruk/genhub/internal/infra/sqlite"
)

// ─── fakes ──────────────────────────────────────────────────────────────────

type llmCall struct {
	variant llm.Variant
	model   string
	history []llm.Message
	cfg     llm.GenerationConfig
}

// fakeLLM answers turns with answer and title requests with title, or fails both with err.
type fakeLLM struct {
	mu     sync.Mutex
	calls  []llmCall
	answer string
	title  string
	err    error
}

func (f *fakeLLM) Dispatch(_ context.Context, v llm.Variant, model string, history []llm.Message, cfg llm.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{v, model, history, cfg})
	if f.err != nil {
		return "", f.err
	}
	if cfg == llm.TitleGenerationConfig() {
		return f.title, nil
	}
	return f.answer, nil
}

type recordedEvent struct{ topic, id string }

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *fakeNotifier) Publish(topic string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{topic, payload.(string)})
}

func (n *fakeNotifier) count(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.topic == topic {
			c++
		}
	}
	return c
}

// faultyStore wraps the real store and fails selected calls.
type faultyStore struct {
	*conversation.Service

	insertErrForRole string
	insertErr        error
	blocksErr        error
	lookupErr        error

	// vanishOnLookup makes the n-th GetDisplayName call (1-based) report the conversation missing.
	vanishOnLookup int

	mu      sync.Mutex
	lookups int
}

func (s *faultyStore) InsertMessage(ctx context.Context, m conversation.Message) (conversation.Message, error) {
	if s.insertErr != nil && m.Role == s.insertErrForRole {
		return conversation.Message{}, s.insertErr
	}
	return s.Service.InsertMessage(ctx, m)
}

func (s *faultyStore) InsertBlocks(ctx context.Context, messageID string, blocks []render.Block) error {
	if s.blocksErr != nil {
		return s.blocksErr
	}
	return s.Service.InsertBlocks(ctx, messageID, blocks)
}

func (s *faultyStore) GetDisplayName(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	s.lookups++
	n := s.lookups
	s.mu.Unlock()

	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	if n == s.vanishOnLookup {
		return "", &apperr.NotFoundError{Entity: "chat", ID: id}
	}
	return s.Service.GetDisplayName(ctx, id)
}

type failingRenderer struct{ err error }

func (r failingRenderer) Render(string, string) ([]render.Block, error) { return nil, r.err }

func withStore(build func(*conversation.Service) Store) func(*Deps) {
	return func(d *Deps) { d.Store = build(d.Store.(*conversation.Service)) }
}

// ─── harness ────────────────────────────────────────────────────────────────

type harness struct {
	db     *sql.DB
	convs  *conversation.Service
	provs  *provider.Service
	llm    *fakeLLM
	events *fakeNotifier
	orch   *Orchestrator
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newHarness(t *testing.T, fake LLM, opts ...func(*Deps)) *harness {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = sqlite.MigrateUp(context.Background(), db)
	require.NoError(t, err)

	h := &harness{
		db:     db,
		convs:  conversation.NewService(db, conversation.WithClock(tickingClock())),
		provs:  provider.NewService(db, nil, nil, nil),
		events: &fakeNotifier{},
	}
	if f, ok := fake.(*fakeLLM); ok {
		h.llm = f
	}
	deps := Deps{
		Store:       h.convs,
		Credentials: h.provs,
		LLM:         fake,
		Renderer:    render.New(),
		Theme:       settings.NewStore("", settings.Defaults()),
		Events:      h.events,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.orch = NewOrchestrator(deps)
	return h
}

func (h *harness) setKey(t *testing.T, name, key string) {
	t.Helper()
	_, err := h.db.Exec(`UPDATE providers SET api_key = ?, api_key_valid = 1 WHERE provider_name = ?`, key, name)
	require.NoError(t, err)
}

func (h *harness) messages(t *testing.T, id string) []conversation.Message {
	t.Helper()
	msgs, err := h.convs.GetMessages(context.Background(), id)
	require.NoError(t, err)
	return msgs
}

func roles(msgs []conversation.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// ─── scenarios ──────────────────────────────────────────────────────────────

func TestSendTurn_NewConversationIsAnsweredAndTitled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "Hi! How can I help?", title: "  \"Friendly greeting\"\n"})
	h.setKey(t, "openai", "sk-valid")

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "openai", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", answer)

	msgs := h.messages(t, "c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"user", "assistant"}, roles(msgs))
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Empty(t, msgs[0].ModelName)
	assert.Equal(t, "gpt-x", msgs[1].ModelName)

	c, err := h.convs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Friendly greeting", c.DisplayName)
	assert.True(t, c.LastUpdated.After(c.CreationDate))

	require.Len(t, h.llm.calls, 2)
	turn, title := h.llm.calls[0], h.llm.calls[1]
	assert.Equal(t, llm.OpenAI{APIKey: "sk-valid"}, turn.variant)
	assert.Equal(t, llm.DefaultGenerationConfig(), turn.cfg)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "Hello"}}, turn.history)
	assert.Equal(t, turn.variant, title.variant, "title uses the turn's variant")
	assert.Equal(t, llm.TitleGenerationConfig(), title.cfg)
	require.Len(t, title.history, 1)
	assert.Equal(t, TitlePrompt("Hello", "Hi! How can I help?"), title.history[0].Content)

	assert.Equal(t, 2, h.events.count(eventbus.TopicNewMessage))
	assert.Equal(t, 2, h.events.count(eventbus.TopicNewChat), "created, then titled")

	withBlocks, err := h.convs.GetMessagesWithBlocks(ctx, "c1")
	require.NoError(t, err)
	assert.NotEmpty(t, withBlocks[1].Blocks)
}

func TestSendTurn_MissingCredentialAbortsAfterUserMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "unused"})
	_, err := h.db.Exec(`DELETE FROM providers WHERE provider_name = 'openai'`)
	require.NoError(t, err)

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "openai", Model: "gpt-x"})
	require.Error(t, err)
	assert.Empty(t, answer)
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), "openai")

	assert.Equal(t, []string{"user"}, roles(h.messages(t, "c1")))
	assert.Empty(t, h.llm.calls)
}

func TestSendTurn_AuthFailureBecomesAnswerAndTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	authErr := &llm.DispatchError{Kind: llm.KindAuthentication, Provider: "openai", Err: errors.New("status 401")}
	h := newHarness(t, &fakeLLM{err: authErr})
	h.setKey(t, "openai", "sk-revoked")

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "openai", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, authErr.Error(), answer)
	assert.Contains(t, answer, "Invalid API key or authentication failed")

	msgs := h.messages(t, "c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, authErr.Error(), msgs[1].Content)

	name, err := h.convs.GetDisplayName(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, authErr.Error(), name)
	assert.Len(t, h.llm.calls, 2, "title generation is still attempted")
}

func TestSendTurn_TitledOnlyWhilePlaceholder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "ok", title: "First title"})
	h.setKey(t, "groqcloud", "gsk")

	in := TurnInput{ConversationID: "c1", Text: "one", Provider: "groq", Model: "llama"}
	_, err := h.orch.SendTurn(ctx, in)
	require.NoError(t, err)
	before, err := h.convs.Get(ctx, "c1")
	require.NoError(t, err)

	h.llm.title = "Second title"
	in.Text = "two"
	_, err = h.orch.SendTurn(ctx, in)
	require.NoError(t, err)

	after, err := h.convs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "First title", after.DisplayName)
	assert.True(t, after.LastUpdated.After(before.LastUpdated))
	assert.Len(t, h.llm.calls, 3, "second turn dispatches once, no title call")

	second := h.llm.calls[2]
	require.Len(t, second.history, 3)
	assert.Equal(t, []llm.Role{llm.RoleUser, llm.RoleAssistant, llm.RoleUser},
		[]llm.Role{second.history[0].Role, second.history[1].Role, second.history[2].Role})
	assert.Equal(t, llm.Groq{APIKey: "gsk"}, second.variant)
}

func TestSendTurn_EnsureConversationIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "ok", title: "T"})
	require.NoError(t, h.convs.InsertConversation(ctx, conversation.Conversation{ID: "c1", DisplayName: "Existing"}))

	_, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "hi", Provider: "local", Model: "llama3.2:3b"})
	require.NoError(t, err)

	name, err := h.convs.GetDisplayName(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Existing", name)
	assert.Zero(t, h.events.count(eventbus.TopicNewChat))

	var n int
	require.NoError(t, h.db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSendTurn_LocalNeedsNoStoredRecord(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &fakeLLM{answer: "local ok", title: "Local"})

	answer, err := h.orch.SendTurn(context.Background(), TurnInput{ConversationID: "c9", Text: "hi", Provider: "local", Model: "llama3.2:3b"})
	require.NoError(t, err)
	assert.Equal(t, "local ok", answer)
	assert.Equal(t, llm.Ollama{}, h.llm.calls[0].variant)
}

func TestSendTurn_ConcurrentFirstTurnsCreateOneConversation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &fakeLLM{answer: "ok", title: "T"})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.SendTurn(context.Background(), TurnInput{ConversationID: "c1", Text: "hi", Provider: "local", Model: "m"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var n int
	require.NoError(t, h.db.QueryRow(`SELECT COUNT(*) FROM chats WHERE id = 'c1'`).Scan(&n))
	assert.Equal(t, 1, n)
	assert.Len(t, h.messages(t, "c1"), 10)
}

func TestSendTurn_InvalidInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &fakeLLM{})

	_, err := h.orch.SendTurn(context.Background(), TurnInput{ConversationID: "c1", Text: "   ", Provider: "openai"})
	assert.True(t, errors.Is(err, ErrInvalidTurn))
	assert.Empty(t, h.messages(t, "c1"))
}

func TestSendTurn_EndToEndAgainstCustomEndpoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":"Use ` + "```go\\nfmt.Println(1)\\n```" + `"},"done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	h := newHarness(t, llm.NewDispatcher(llm.WithHTTPClient(srv.Client())))
	_, err := h.provs.Add(ctx, provider.AddInput{Name: "box", BaseURL: srv.URL, WireScheme: "ollama"})
	require.NoError(t, err)

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "e2e", Text: "print one", Provider: "box", Model: "qwen"})
	require.NoError(t, err)
	assert.Equal(t, "Use ```go\nfmt.Println(1)\n```", answer)

	msgs, err := h.convs.GetMessagesWithBlocks(ctx, "e2e")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	var code *render.Block
	for i := range msgs[1].Blocks {
		if msgs[1].Blocks[i].Kind == render.KindCode {
			code = &msgs[1].Blocks[i]
		}
	}
	require.NotNil(t, code)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "fmt.Println(1)", code.RawContent)
}

// ─── storage and rendering failures ─────────────────────────────────────────

func TestSendTurn_UserMessageStoreFailureIsTolerated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "still here", title: "Recovered"}, withStore(func(svc *conversation.Service) Store {
		return &faultyStore{Service: svc, insertErrForRole: conversation.RoleUser, insertErr: errors.New("disk I/O error")}
	}))

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "local", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "still here", answer)

	require.Len(t, h.llm.calls, 2, "turn dispatched and titled")
	assert.Empty(t, h.llm.calls[0].history, "the unsaved user message is not in the history")

	msgs := h.messages(t, "c1")
	assert.Equal(t, []string{"assistant"}, roles(msgs))
	assert.Equal(t, 1, h.events.count(eventbus.TopicNewMessage))

	c, err := h.convs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Recovered", c.DisplayName)
}

func TestSendTurn_AssistantMessageStoreFailureStillAnswers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &fakeLLM{answer: "lost answer", title: "T"}, withStore(func(svc *conversation.Service) Store {
		return &faultyStore{Service: svc, insertErrForRole: conversation.RoleAssistant, insertErr: errors.New("disk full")}
	}))

	answer, err := h.orch.SendTurn(context.Background(), TurnInput{ConversationID: "c1", Text: "Hello", Provider: "local", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "lost answer", answer)
	assert.Equal(t, []string{"user"}, roles(h.messages(t, "c1")))
}

func TestSendTurn_ConversationLookupFailureAborts(t *testing.T) {
	t.Parallel()
	locked := errors.New("database is locked")
	h := newHarness(t, &fakeLLM{answer: "unused"}, withStore(func(svc *conversation.Service) Store {
		return &faultyStore{Service: svc, lookupErr: locked}
	}))

	answer, err := h.orch.SendTurn(context.Background(), TurnInput{ConversationID: "c1", Text: "Hello", Provider: "local", Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, locked)
	assert.Contains(t, err.Error(), "look up conversation")
	assert.Empty(t, answer)
	assert.Empty(t, h.llm.calls)

	assert.Equal(t, []string{"user"}, roles(h.messages(t, "c1")), "step 1 ran before the lookup")
	_, err = h.convs.Get(context.Background(), "c1")
	assert.True(t, apperr.IsNotFound(err), "no conversation row was created")
}

func TestSendTurn_RenderAndBlockFailuresAreTolerated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opt  func(*Deps)
	}{
		{"renderer fails", func(d *Deps) { d.Renderer = failingRenderer{err: errors.New("lexer exploded")} }},
		{"block store fails", withStore(func(svc *conversation.Service) Store {
			return &faultyStore{Service: svc, blocksErr: errors.New("constraint failed")}
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := newHarness(t, &fakeLLM{answer: "```go\nfmt.Println(1)\n```", title: "Code"}, tc.opt)

			answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "local", Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, "```go\nfmt.Println(1)\n```", answer)

			msgs, err := h.convs.GetMessagesWithBlocks(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			for _, m := range msgs {
				assert.Empty(t, m.Blocks, "%s message has no stored blocks", m.Role)
			}
			assert.Equal(t, 2, h.events.count(eventbus.TopicNewMessage))
		})
	}
}

func TestSendTurn_ConversationVanishedBeforeTitling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, &fakeLLM{answer: "answer kept", title: "never used"}, withStore(func(svc *conversation.Service) Store {
		// lookup 1 is step 2, lookup 2 is step 7
		return &faultyStore{Service: svc, vanishOnLookup: 2}
	}))

	answer, err := h.orch.SendTurn(ctx, TurnInput{ConversationID: "c1", Text: "Hello", Provider: "local", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "answer kept", answer)

	require.Len(t, h.llm.calls, 1, "no title request")
	c, err := h.convs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, conversation.PlaceholderName("c1"), c.DisplayName)
	assert.Equal(t, 1, h.events.count(eventbus.TopicNewChat), "only the creation")
}
