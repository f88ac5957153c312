package repository

import (
	"context"
	"errors"
	"time"

	"rehber-go/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 定义了消息明细的持久化操作。
type MessageRepository interface {
	Append(ctx context.Context, msg *model.ChatMessage) error
	RecentHistory(ctx context.Context, tenantID, sessionID string, limit int) ([]model.ChatMessage, error)
	ListForSession(ctx context.Context, tenantID, profileKey, sessionID string, limit int) ([]model.ChatMessage, error)
	LastAnswer(ctx context.Context, tenantID, profileKey, sessionID string) (string, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append 在一个事务中写入消息并刷新会话的最近活跃时间。
func (r *messageRepository) Append(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&model.ChatSession{}).
			Where("id = ? AND tenant_id = ?", msg.SessionID, msg.TenantID).
			Update("last_activity_at", now).Error
	})
}

// RecentHistory 返回会话最近的若干条 user/assistant 消息，按时间升序排列。
func (r *messageRepository) RecentHistory(ctx context.Context, tenantID, sessionID string, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ? AND role IN ?", tenantID, sessionID,
			[]string{model.RoleUser, model.RoleAssistant}).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// 查询按倒序取最近 limit 条，这里翻转回时间正序。
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListForSession 按时间升序返回会话的完整消息记录。
func (r *messageRepository) ListForSession(ctx context.Context, tenantID, profileKey, sessionID string, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_key = ? AND session_id = ?", tenantID, profileKey, sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// LastAnswer 返回会话中最后一条助手消息的内容，没有时返回空字符串。
func (r *messageRepository) LastAnswer(ctx context.Context, tenantID, profileKey, sessionID string) (string, error) {
	var msg model.ChatMessage
	err := r.db.WithContext(ctx).
		Select("content").
		Where("tenant_id = ? AND profile_key = ? AND session_id = ? AND role = ?",
			tenantID, profileKey, sessionID, model.RoleAssistant).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
