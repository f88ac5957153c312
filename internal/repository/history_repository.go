package repository

import (
	"context"

	"rehber-go/internal/model"

	"gorm.io/gorm"
)

// HistoryRepository 负责写入问答审计明细。
type HistoryRepository interface {
	Insert(ctx context.Context, rec *model.TurnRecord) error
	RecentForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.TurnRecord, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建一个新的 HistoryRepository 实例。
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Insert(ctx context.Context, rec *model.TurnRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// RecentForUser 按时间倒序返回用户最近的问答记录，供报表导出使用。
func (r *historyRepository) RecentForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.TurnRecord, error) {
	var records []model.TurnRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_key = ? AND user_id = ?", tenantID, profileKey, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
