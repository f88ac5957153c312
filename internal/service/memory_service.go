package service

import (
	"context"
	"fmt"
	"strings"

	"rehber-go/internal/config"
	"rehber-go/internal/model"
	"rehber-go/internal/repository"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/log"
)

const (
	memoryHistoryLimit = 20
	memoryRecentCount  = 4
	memoryMinForSumm   = 4

	summaryLabel = "Onceki Konusma Ozeti:"
	recentLabel  = "Son Mesajlar:"
	userLabel    = "Kullanici"
	botLabel     = "Asistan"
)

// MemoryBuilder 为即将到来的提问构造会话记忆文本。
// 构造过程中的任何失败都不阻断问答，Build 此时返回空字符串。
type MemoryBuilder interface {
	Build(ctx context.Context, tenantID, profileKey, sessionID, summaryContext string) string
}

type memoryBuilder struct {
	messageRepo repository.MessageRepository
	llmClient   llm.Client
	miniModel   string
}

// NewMemoryBuilder 创建一个新的 MemoryBuilder 实例。
func NewMemoryBuilder(messageRepo repository.MessageRepository, llmClient llm.Client) MemoryBuilder {
	return &memoryBuilder{
		messageRepo: messageRepo,
		llmClient:   llmClient,
		miniModel:   config.Conf.LLM.MiniModel,
	}
}

// Build 读取会话最近消息并组装记忆块。
// 消息不足 4 条时只给最近消息，不做摘要；
// 否则用轻量模型摘要除最后两条以外的内容，再附最近 4 条原文。
func (b *memoryBuilder) Build(ctx context.Context, tenantID, profileKey, sessionID, summaryContext string) string {
	if sessionID == "" {
		return ""
	}

	messages, err := b.messageRepo.RecentHistory(ctx, tenantID, sessionID, memoryHistoryLimit)
	if err != nil {
		log.Errorf("读取会话历史失败: session=%s err=%v", sessionID, err)
		return ""
	}
	// 末尾的用户消息是刚入库的当前提问，不进入记忆窗口，
	// 否则提问会在提示词里出现两次。
	if n := len(messages); n > 0 && messages[n-1].Role == model.RoleUser {
		messages = messages[:n-1]
	}
	if len(messages) == 0 {
		return ""
	}

	if len(messages) < memoryMinForSumm {
		return recentBlock(messages)
	}

	summary := b.summarize(ctx, messages[:len(messages)-2], summaryContext)
	recent := recentBlock(messages[len(messages)-memoryRecentCount:])
	if summary == "" {
		return recent
	}
	return summaryLabel + "\n" + summary + "\n\n" + recent
}

// summarize 用轻量模型压缩较早的历史消息，失败时返回空字符串。
func (b *memoryBuilder) summarize(ctx context.Context, messages []model.ChatMessage, summaryContext string) string {
	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(roleLabel(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	system := "Sana verilen konusma gecmisini en fazla uc cumleyle, onemli bilgileri koruyarak ozetle."
	if summaryContext != "" {
		system = fmt.Sprintf("%s Baglam: %s", system, summaryContext)
	}

	result, err := b.llmClient.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}, &llm.ChatOptions{Model: b.miniModel})
	if err != nil {
		log.Errorf("历史摘要生成失败: err=%v", err)
		return ""
	}
	return strings.TrimSpace(result.Text)
}

func recentBlock(messages []model.ChatMessage) string {
	var sb strings.Builder
	sb.WriteString(recentLabel)
	for _, msg := range messages {
		sb.WriteString("\n")
		sb.WriteString(roleLabel(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

func roleLabel(role string) string {
	if role == model.RoleAssistant {
		return botLabel
	}
	return userLabel
}
