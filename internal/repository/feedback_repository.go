package repository

import (
	"context"
	"errors"

	"rehber-go/internal/model"

	"gorm.io/gorm"
)

// ErrMessageNotFound 表示评分目标消息不在指定作用域内。
var ErrMessageNotFound = errors.New("message not found")

// FeedbackRepository 负责助手回答评分的持久化，按 message_id 去重。
type FeedbackRepository interface {
	Upsert(ctx context.Context, f *model.ChatFeedback) (bool, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository 创建一个新的 FeedbackRepository 实例。
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Upsert 先校验目标消息必须是本作用域内的助手回答，
// 再按 message_id 插入或更新评分。返回值表示是否为新建记录。
func (r *feedbackRepository) Upsert(ctx context.Context, f *model.ChatFeedback) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("id = ? AND tenant_id = ? AND profile_key = ? AND role = ?",
			f.MessageID, f.TenantID, f.ProfileKey, model.RoleAssistant).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrMessageNotFound
	}

	var existing model.ChatFeedback
	err = r.db.WithContext(ctx).
		Where("message_id = ? AND tenant_id = ?", f.MessageID, f.TenantID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	err = r.db.WithContext(ctx).
		Model(&model.ChatFeedback{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"score": f.Score, "reason": f.Reason}).Error
	if err != nil {
		return false, err
	}
	return false, nil
}
