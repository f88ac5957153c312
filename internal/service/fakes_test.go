package service

import (
	"context"
	"time"

	"rehber-go/internal/model"
	"rehber-go/internal/repository"
	"rehber-go/internal/tenant"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/tasks"
)

// fakeLLM 按调用顺序返回预置结果，并记录每次收到的消息与选项。
type fakeLLM struct {
	results []*llm.Result
	err     error

	calls    int
	messages [][]llm.Message
	options  []*llm.ChatOptions
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Result, error) {
	f.messages = append(f.messages, messages)
	f.options = append(f.options, opts)
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls > len(f.results) {
		return &llm.Result{Text: "varsayilan cevap"}, nil
	}
	return f.results[f.calls-1], nil
}

// fakeRetriever 返回固定上下文。
type fakeRetriever struct {
	contextText string
	err         error
	queries     []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, tenantID, profileKey, collection, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.contextText, f.err
}

// fakeSessionRepo 是内存实现的会话仓储。
type fakeSessionRepo struct {
	sessions map[string]*model.ChatSession
	ensured  []repository.EnsureParams
	stateErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.ChatSession)}
}

func (f *fakeSessionRepo) Ensure(ctx context.Context, p repository.EnsureParams) (string, error) {
	f.ensured = append(f.ensured, p)
	id := p.SessionID
	if id == "" {
		id = "00000000-0000-0000-0000-000000000001"
	}
	if _, ok := f.sessions[id]; !ok {
		f.sessions[id] = &model.ChatSession{
			ID:         id,
			TenantID:   p.TenantID,
			ProfileKey: p.ProfileKey,
			UserID:     p.UserID,
			StartedAt:  time.Now(),
		}
	}
	return id, nil
}

func (f *fakeSessionRepo) TitleState(ctx context.Context, tenantID, profileKey, sessionID string) (*string, bool, error) {
	if f.stateErr != nil {
		return nil, false, f.stateErr
	}
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, false, repository.ErrSessionNotFound
	}
	return sess.Title, sess.TitleLocked, nil
}

func (f *fakeSessionRepo) SetTitleIfEmpty(ctx context.Context, tenantID, profileKey, sessionID, title string) (bool, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return false, repository.ErrSessionNotFound
	}
	if sess.Title != nil {
		return false, nil
	}
	sess.Title = &title
	return true, nil
}

func (f *fakeSessionRepo) SetTitleUnlessLocked(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil
	}
	if !sess.TitleLocked {
		sess.Title = &title
	}
	return nil
}

func (f *fakeSessionRepo) Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.Title = &title
	sess.TitleLocked = true
	return nil
}

func (f *fakeSessionRepo) Owner(ctx context.Context, tenantID, profileKey, sessionID string) (string, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return "", repository.ErrSessionNotFound
	}
	return sess.UserID, nil
}

func (f *fakeSessionRepo) LatestForUser(ctx context.Context, tenantID, profileKey, userID string) (string, error) {
	var latest string
	for id, sess := range f.sessions {
		if sess.UserID == userID {
			latest = id
		}
	}
	return latest, nil
}

func (f *fakeSessionRepo) ListForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.ChatSession, error) {
	var out []model.ChatSession
	for _, sess := range f.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, tenantID, profileKey, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

// fakeMessageRepo 是内存实现的消息仓储。
type fakeMessageRepo struct {
	history    []model.ChatMessage
	appended   []model.ChatMessage
	historyErr error
}

func (f *fakeMessageRepo) Append(ctx context.Context, msg *model.ChatMessage) error {
	f.appended = append(f.appended, *msg)
	return nil
}

func (f *fakeMessageRepo) RecentHistory(ctx context.Context, tenantID, sessionID string, limit int) ([]model.ChatMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeMessageRepo) ListForSession(ctx context.Context, tenantID, profileKey, sessionID string, limit int) ([]model.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeMessageRepo) LastAnswer(ctx context.Context, tenantID, profileKey, sessionID string) (string, error) {
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].Role == model.RoleAssistant {
			return f.history[i].Content, nil
		}
	}
	return "", nil
}

// fakeHistoryRepo 记录写入的审计明细。
type fakeHistoryRepo struct {
	records []model.TurnRecord
}

func (f *fakeHistoryRepo) Insert(ctx context.Context, rec *model.TurnRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistoryRepo) RecentForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.TurnRecord, error) {
	return f.records, nil
}

// fakeMemory 返回固定记忆文本，onBuild 用于观察构造时机。
type fakeMemory struct {
	memory  string
	onBuild func()
}

func (f *fakeMemory) Build(ctx context.Context, tenantID, profileKey, sessionID, summaryContext string) string {
	if f.onBuild != nil {
		f.onBuild()
	}
	return f.memory
}

// fakeRAG 返回固定答案。
type fakeRAG struct {
	result *model.AnswerResult
	err    error
	inputs []AnswerInput
}

func (f *fakeRAG) Answer(ctx context.Context, profile tenant.Profile, in AnswerInput) (*model.AnswerResult, error) {
	f.inputs = append(f.inputs, in)
	return f.result, f.err
}

// fakeTitles 记录标题维护调用。
type fakeTitles struct {
	maybeSetCalls []string
}

func (f *fakeTitles) MaybeSetTitle(ctx context.Context, tenantID, profileKey, sessionID, firstQuestion string) {
	f.maybeSetCalls = append(f.maybeSetCalls, sessionID)
}

func (f *fakeTitles) Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	return nil
}

func (f *fakeTitles) ProcessTitleTask(ctx context.Context, task tasks.TitleRefineTask) error {
	return nil
}
