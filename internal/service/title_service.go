package service

import (
	"context"
	"fmt"
	"strings"

	"rehber-go/internal/config"
	"rehber-go/internal/repository"
	"rehber-go/pkg/kafka"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/log"
	"rehber-go/pkg/tasks"
)

const titleMaxLen = 60

// TitleService 维护会话标题：同步路径写入降级标题并投递异步优化任务，
// 消费侧用轻量模型改写标题，用户显式命名的标题永不被后台覆盖。
type TitleService interface {
	MaybeSetTitle(ctx context.Context, tenantID, profileKey, sessionID, firstQuestion string)
	Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error
	ProcessTitleTask(ctx context.Context, task tasks.TitleRefineTask) error
}

type titleService struct {
	sessionRepo repository.SessionRepository
	llmClient   llm.Client
	miniModel   string
	// submit 默认投递到 Kafka，测试中可替换。
	submit func(ctx context.Context, task tasks.TitleRefineTask) error
}

// NewTitleService 创建一个新的 TitleService 实例。
func NewTitleService(sessionRepo repository.SessionRepository, llmClient llm.Client) TitleService {
	return &titleService{
		sessionRepo: sessionRepo,
		llmClient:   llmClient,
		miniModel:   config.Conf.LLM.MiniModel,
		submit:      kafka.ProduceTitleTask,
	}
}

// MaybeSetTitle 在首轮问答后同步写入降级标题。
// 条件更新保证并发首轮请求至多一个写入成功；写入成功才投递异步优化任务。
// 标题相关的任何失败只记录日志，不影响问答主流程。
func (s *titleService) MaybeSetTitle(ctx context.Context, tenantID, profileKey, sessionID, firstQuestion string) {
	title, locked, err := s.sessionRepo.TitleState(ctx, tenantID, profileKey, sessionID)
	if err != nil {
		log.Errorf("读取标题状态失败: session=%s err=%v", sessionID, err)
		return
	}
	if locked || (title != nil && *title != "") {
		return
	}

	fallback := sanitizeTitle(firstQuestion)
	if fallback == "" {
		return
	}
	wrote, err := s.sessionRepo.SetTitleIfEmpty(ctx, tenantID, profileKey, sessionID, fallback)
	if err != nil {
		log.Errorf("写入降级标题失败: session=%s err=%v", sessionID, err)
		return
	}
	if !wrote {
		return
	}

	task := tasks.TitleRefineTask{
		TenantID:      tenantID,
		ProfileKey:    profileKey,
		SessionID:     sessionID,
		FirstQuestion: firstQuestion,
	}
	if err := s.submit(ctx, task); err != nil {
		// 投递失败时降级标题仍然有效。
		log.Errorf("投递标题优化任务失败: session=%s err=%v", sessionID, err)
	}
}

// Rename 写入用户显式命名的标题并锁定。
func (s *titleService) Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	cleaned := sanitizeTitle(title)
	if cleaned == "" {
		return fmt.Errorf("empty title")
	}
	return s.sessionRepo.Rename(ctx, tenantID, profileKey, sessionID, cleaned)
}

// ProcessTitleTask 是 Kafka 消费侧的入口：
// 用轻量模型生成精炼标题，写入前由条件更新再次确认未被用户锁定。
func (s *titleService) ProcessTitleTask(ctx context.Context, task tasks.TitleRefineTask) error {
	result, err := s.llmClient.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Kullanicinin sorusundan en fazla bes kelimelik, kisa ve aciklayici bir Turkce konusma basligi uret. Sadece basligi yaz."},
		{Role: "user", Content: task.FirstQuestion},
	}, &llm.ChatOptions{Model: s.miniModel})
	if err != nil {
		return fmt.Errorf("generate title: %w", err)
	}

	title := sanitizeTitle(result.Text)
	if title == "" {
		return nil
	}
	if err := s.sessionRepo.SetTitleUnlessLocked(ctx, task.TenantID, task.ProfileKey, task.SessionID, title); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	log.Infof("会话标题已优化: session=%s title=%q", task.SessionID, title)
	return nil
}

// sanitizeTitle 清理标题文本：去掉包裹引号与结尾标点，按字符数截断。
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	title = strings.TrimRight(title, ".!?")
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) > titleMaxLen {
		title = strings.TrimSpace(string(runes[:titleMaxLen]))
	}
	return title
}
