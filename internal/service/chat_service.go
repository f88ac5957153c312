package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rehber-go/internal/config"
	"rehber-go/internal/model"
	"rehber-go/internal/ratelimit"
	"rehber-go/internal/repository"
	"rehber-go/internal/security"
	"rehber-go/internal/tenant"
	"rehber-go/pkg/log"

	"github.com/google/uuid"
)

const (
	previewMaxLen = 120

	// defaultTitle 是尚未生成标题时对外展示的占位标题。
	defaultTitle = "Yeni Konusma"
)

// ChatService 编排一轮完整的问答：
// 输入净化、作用域解析、限流、会话与消息持久化、记忆构造、答案生成与标题维护。
type ChatService interface {
	HandleTurn(ctx context.Context, tenantID, profileKey string, req model.TurnRequest, clientIP, userAgent string) (*model.TurnResponse, error)
}

type chatService struct {
	registry     *tenant.Registry
	limiter      *ratelimit.Limiter
	sessionRepo  repository.SessionRepository
	messageRepo  repository.MessageRepository
	historyRepo  repository.HistoryRepository
	memory       MemoryBuilder
	rag          RAGService
	titles       TitleService
	modelName    string
	maxPromptLen int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	registry *tenant.Registry,
	limiter *ratelimit.Limiter,
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	historyRepo repository.HistoryRepository,
	memory MemoryBuilder,
	rag RAGService,
	titles TitleService,
) ChatService {
	return &chatService{
		registry:     registry,
		limiter:      limiter,
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		historyRepo:  historyRepo,
		memory:       memory,
		rag:          rag,
		titles:       titles,
		modelName:    config.Conf.LLM.Model,
		maxPromptLen: config.Conf.Security.MaxPromptLength,
	}
}

func (s *chatService) HandleTurn(ctx context.Context, tenantID, profileKey string, req model.TurnRequest, clientIP, userAgent string) (*model.TurnResponse, error) {
	start := time.Now()

	question, err := security.EnsureSafePrompt(req.Question, s.maxPromptLen)
	if err != nil {
		return nil, err
	}
	userID, err := security.SanitizeIdentifier(req.UserID, "user_id")
	if err != nil {
		return nil, err
	}
	requestID := req.RequestID
	if requestID != "" {
		if requestID, err = security.SanitizeIdentifier(requestID, "request_id"); err != nil {
			return nil, err
		}
	} else {
		requestID = uuid.NewString()
	}
	userAgent = security.SanitizeMetadata(userAgent, "unknown", 200)
	clientIP = security.SanitizeMetadata(clientIP, "unknown", 64)

	profile, err := s.registry.Profile(tenantID, profileKey)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Check(tenantID + ":" + clientIP); err != nil {
		return nil, err
	}

	sessionID, err := s.sessionRepo.Ensure(ctx, repository.EnsureParams{
		TenantID:   tenantID,
		ProfileKey: profile.Key,
		UserID:     userID,
		SessionID:  req.SessionID,
		ClientIP:   clientIP,
		UserAgent:  userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	// 先持久化当前提问，答案管线开始前提问必须已落库；
	// 记忆窗口由 MemoryBuilder 剔除这条刚入库的提问。
	userMsg := model.ChatMessage{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ProfileKey: profile.Key,
		SessionID:  sessionID,
		Role:       model.RoleUser,
		Content:    question,
	}
	if err := s.messageRepo.Append(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	memory := s.memory.Build(ctx, tenantID, profile.Key, sessionID, profile.SummaryContext)

	answer, err := s.rag.Answer(ctx, profile, AnswerInput{
		TenantID:   tenantID,
		ProfileKey: profile.Key,
		UserID:     userID,
		SessionID:  sessionID,
		Question:   question,
		Memory:     memory,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	latency := int(time.Since(start).Milliseconds())

	assistantMsg := model.ChatMessage{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		ProfileKey:       profile.Key,
		SessionID:        sessionID,
		Role:             model.RoleAssistant,
		Content:          answer.Text,
		Model:            &s.modelName,
		LatencyMs:        latency,
		PromptTokens:     answer.PromptTokens,
		CompletionTokens: answer.CompletionTokens,
		TotalTokens:      answer.TotalTokens,
	}
	if err := s.messageRepo.Append(ctx, &assistantMsg); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	record := model.TurnRecord{
		TenantID:         tenantID,
		ProfileKey:       profile.Key,
		UserID:           userID,
		SessionID:        sessionID,
		RequestID:        requestID,
		IP:               clientIP,
		UserAgent:        userAgent,
		Model:            &s.modelName,
		Question:         question,
		Answer:           answer.Text,
		LatencyMs:        latency,
		PromptTokens:     answer.PromptTokens,
		CompletionTokens: answer.CompletionTokens,
		TotalTokens:      answer.TotalTokens,
	}
	if err := s.historyRepo.Insert(ctx, &record); err != nil {
		// 审计明细写入失败不阻断答复。
		log.Errorf("写入问答审计记录失败: session=%s err=%v", sessionID, err)
	}

	s.titles.MaybeSetTitle(ctx, tenantID, profile.Key, sessionID, question)

	title, _, err := s.sessionRepo.TitleState(ctx, tenantID, profile.Key, sessionID)
	if err != nil {
		log.Errorf("读取会话标题失败: session=%s err=%v", sessionID, err)
	}
	displayTitle := defaultTitle
	if title != nil && *title != "" {
		displayTitle = *title
	}

	return &model.TurnResponse{
		Answer:       answer.Text,
		Status:       "ok",
		File:         answer.Attachment,
		TenantID:     tenantID,
		SessionID:    sessionID,
		SessionTitle: displayTitle,
		LastActivity: time.Now().UTC().Format(time.RFC3339),
		Preview:      previewOf(answer.Text),
		MessageID:    assistantMsg.ID,
	}, nil
}

// previewOf 截取答案开头作为会话列表里的预览文本。
func previewOf(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= previewMaxLen {
		return text
	}
	return strings.TrimSpace(string(runes[:previewMaxLen])) + "..."
}
