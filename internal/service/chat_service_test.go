package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rehber-go/internal/config"
	"rehber-go/internal/model"
	"rehber-go/internal/ratelimit"
	"rehber-go/internal/security"
	"rehber-go/internal/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatTestRegistry = `{
  "tenant_id": "okul-a",
  "default_profile": "ogrenci",
  "profiles": {
    "ogrenci": {"vector_collection": "okul-a-ogrenci"}
  }
}`

type chatFixture struct {
	svc         ChatService
	sessionRepo *fakeSessionRepo
	messageRepo *fakeMessageRepo
	historyRepo *fakeHistoryRepo
	memory      *fakeMemory
	rag         *fakeRAG
	titles      *fakeTitles
	limiter     *ratelimit.Limiter
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	config.Conf.LLM.Model = "test-model"
	config.Conf.Security.MaxPromptLength = 2000

	registry, err := tenant.Parse([]byte(chatTestRegistry))
	require.NoError(t, err)

	f := &chatFixture{
		sessionRepo: newFakeSessionRepo(),
		messageRepo: &fakeMessageRepo{},
		historyRepo: &fakeHistoryRepo{},
		memory:      &fakeMemory{memory: "Son Mesajlar:\nKullanici: merhaba"},
		rag:         &fakeRAG{result: &model.AnswerResult{Text: "Servis 07:30'da kalkar.", TotalTokens: 120}},
		titles:      &fakeTitles{},
		limiter:     ratelimit.NewLimiter(100, 60),
	}
	f.svc = NewChatService(
		registry,
		f.limiter,
		f.sessionRepo,
		f.messageRepo,
		f.historyRepo,
		f.memory,
		f.rag,
		f.titles,
	)
	return f
}

func chatRequest() model.TurnRequest {
	return model.TurnRequest{
		Question: "Servis kacta kalkiyor?",
		UserID:   "u1",
	}
}

func TestHandleTurnHappyPath(t *testing.T) {
	f := newChatFixture(t)

	resp, err := f.svc.HandleTurn(context.Background(), "okul-a", "", chatRequest(), "1.2.3.4", "Mozilla/5.0")
	require.NoError(t, err)

	assert.Equal(t, "Servis 07:30'da kalkar.", resp.Answer)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "okul-a", resp.TenantID)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.MessageID)
	assert.Equal(t, "Yeni Konusma", resp.SessionTitle)
	assert.Equal(t, "Servis 07:30'da kalkar.", resp.Preview)

	// 用户与助手消息各持久化一条
	require.Len(t, f.messageRepo.appended, 2)
	assert.Equal(t, model.RoleUser, f.messageRepo.appended[0].Role)
	assert.Equal(t, "Servis kacta kalkiyor?", f.messageRepo.appended[0].Content)
	assert.Equal(t, model.RoleAssistant, f.messageRepo.appended[1].Role)
	assert.Equal(t, 120, f.messageRepo.appended[1].TotalTokens)
	assert.Equal(t, resp.MessageID, f.messageRepo.appended[1].ID)

	// 审计明细与标题维护
	require.Len(t, f.historyRepo.records, 1)
	assert.Equal(t, "u1", f.historyRepo.records[0].UserID)
	assert.NotEmpty(t, f.historyRepo.records[0].RequestID)
	assert.Len(t, f.titles.maybeSetCalls, 1)

	// 记忆与净化后的问题流入答案管线
	require.Len(t, f.rag.inputs, 1)
	assert.Equal(t, "Servis kacta kalkiyor?", f.rag.inputs[0].Question)
	assert.Contains(t, f.rag.inputs[0].Memory, "Son Mesajlar")
}

func TestHandleTurnPersistsQuestionBeforeMemory(t *testing.T) {
	f := newChatFixture(t)

	// 记忆构造开始时，当前提问必须已经落库
	persistedAtBuild := -1
	f.memory.onBuild = func() { persistedAtBuild = len(f.messageRepo.appended) }

	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", chatRequest(), "1.2.3.4", "ua")
	require.NoError(t, err)

	require.Equal(t, 1, persistedAtBuild)
	assert.Equal(t, model.RoleUser, f.messageRepo.appended[0].Role)
}

func TestHandleTurnReusesExplicitSession(t *testing.T) {
	f := newChatFixture(t)

	req := chatRequest()
	req.SessionID = "7b9e7f5e-8c7d-4f3a-9d2e-1a2b3c4d5e6f"
	resp, err := f.svc.HandleTurn(context.Background(), "okul-a", "", req, "1.2.3.4", "ua")
	require.NoError(t, err)

	assert.Equal(t, req.SessionID, resp.SessionID)
	require.Len(t, f.sessionRepo.ensured, 1)
	assert.Equal(t, req.SessionID, f.sessionRepo.ensured[0].SessionID)
}

func TestHandleTurnRejectsUnsafeQuestion(t *testing.T) {
	f := newChatFixture(t)

	req := chatRequest()
	req.Question = "'; DROP TABLE chat_sessions; --"
	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", req, "1.2.3.4", "ua")

	var unsafeErr *security.ErrUnsafe
	require.ErrorAs(t, err, &unsafeErr)
	assert.Empty(t, f.messageRepo.appended)
	assert.Empty(t, f.rag.inputs)
}

func TestHandleTurnRejectsBadUserID(t *testing.T) {
	f := newChatFixture(t)

	req := chatRequest()
	req.UserID = "u 1; --"
	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", req, "1.2.3.4", "ua")
	assert.Error(t, err)
}

func TestHandleTurnUnknownTenant(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.HandleTurn(context.Background(), "okul-yok", "", chatRequest(), "1.2.3.4", "ua")
	assert.ErrorIs(t, err, tenant.ErrUnknownTenant)
	assert.Empty(t, f.messageRepo.appended)
}

func TestHandleTurnRateLimited(t *testing.T) {
	f := newChatFixture(t)
	// 把该调用方的窗口占满
	for i := 0; i < 100; i++ {
		require.NoError(t, f.limiter.Check("okul-a:1.2.3.4"))
	}

	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", chatRequest(), "1.2.3.4", "ua")

	var limitErr *ratelimit.RateLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Empty(t, f.messageRepo.appended)

	// 不同 IP 不受影响
	_, err = f.svc.HandleTurn(context.Background(), "okul-a", "", chatRequest(), "5.6.7.8", "ua")
	assert.NoError(t, err)
}

func TestHandleTurnRAGFailurePropagates(t *testing.T) {
	f := newChatFixture(t)
	f.rag.result = nil
	f.rag.err = errors.New("llm unavailable")

	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", chatRequest(), "1.2.3.4", "ua")
	require.Error(t, err)

	// 用户消息已持久化，助手消息没有
	require.Len(t, f.messageRepo.appended, 1)
	assert.Equal(t, model.RoleUser, f.messageRepo.appended[0].Role)
}

func TestHandleTurnSurfacesExistingTitle(t *testing.T) {
	f := newChatFixture(t)

	req := chatRequest()
	req.SessionID = "7b9e7f5e-8c7d-4f3a-9d2e-1a2b3c4d5e6f"
	_, err := f.svc.HandleTurn(context.Background(), "okul-a", "", req, "1.2.3.4", "ua")
	require.NoError(t, err)

	title := "Servis Saatleri"
	f.sessionRepo.sessions[req.SessionID].Title = &title

	resp, err := f.svc.HandleTurn(context.Background(), "okul-a", "", req, "1.2.3.4", "ua")
	require.NoError(t, err)
	assert.Equal(t, "Servis Saatleri", resp.SessionTitle)
}

func TestPreviewOf(t *testing.T) {
	assert.Equal(t, "kisa cevap", previewOf("  kisa cevap  "))

	long := strings.Repeat("a", 300)
	preview := previewOf(long)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len([]rune(preview)), previewMaxLen+3)
}
