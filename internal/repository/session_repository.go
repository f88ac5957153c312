// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"time"

	"rehber-go/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSessionID 表示显式传入的会话标识不是合法的 UUID。
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrSessionNotFound 表示目标会话不存在于指定作用域内。
var ErrSessionNotFound = errors.New("session not found")

// EnsureParams 是解析/创建会话身份所需的全部字段。
type EnsureParams struct {
	TenantID   string
	ProfileKey string
	UserID     string
	// SessionID 非空时执行 upsert；为空时铸造新身份。
	SessionID string
	ClientIP  string
	UserAgent string
}

// SessionRepository 定义了会话身份与标题状态的持久化操作。
type SessionRepository interface {
	Ensure(ctx context.Context, p EnsureParams) (string, error)
	TitleState(ctx context.Context, tenantID, profileKey, sessionID string) (*string, bool, error)
	SetTitleIfEmpty(ctx context.Context, tenantID, profileKey, sessionID, title string) (bool, error)
	SetTitleUnlessLocked(ctx context.Context, tenantID, profileKey, sessionID, title string) error
	Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error
	Owner(ctx context.Context, tenantID, profileKey, sessionID string) (string, error)
	LatestForUser(ctx context.Context, tenantID, profileKey, userID string) (string, error)
	ListForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.ChatSession, error)
	Delete(ctx context.Context, tenantID, profileKey, sessionID string) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Ensure 解析或创建会话。
// 带显式 ID 时按 upsert 处理：不存在则创建，存在则只更新可变字段，
// 保留 title/title_locked/started_at；并发同 ID 调用依赖数据库唯一键保证单行。
func (r *sessionRepository) Ensure(ctx context.Context, p EnsureParams) (string, error) {
	now := time.Now()

	if p.SessionID != "" {
		if _, err := uuid.Parse(p.SessionID); err != nil {
			return "", ErrInvalidSessionID
		}
		session := model.ChatSession{
			ID:             p.SessionID,
			TenantID:       p.TenantID,
			ProfileKey:     p.ProfileKey,
			UserID:         p.UserID,
			ClientIP:       p.ClientIP,
			UserAgent:      p.UserAgent,
			LastActivityAt: &now,
		}
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tenant_id", "profile_key", "user_id", "client_ip", "user_agent", "last_activity_at",
			}),
		}).Create(&session).Error
		if err != nil {
			return "", err
		}
		return p.SessionID, nil
	}

	session := model.ChatSession{
		ID:             uuid.NewString(),
		TenantID:       p.TenantID,
		ProfileKey:     p.ProfileKey,
		UserID:         p.UserID,
		ClientIP:       p.ClientIP,
		UserAgent:      p.UserAgent,
		LastActivityAt: &now,
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", err
	}
	return session.ID, nil
}

// TitleState 返回会话当前的标题与锁定状态。
func (r *sessionRepository) TitleState(ctx context.Context, tenantID, profileKey, sessionID string) (*string, bool, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Select("title", "title_locked").
		Where("id = ? AND tenant_id = ? AND profile_key = ?", sessionID, tenantID, profileKey).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrSessionNotFound
	}
	if err != nil {
		return nil, false, err
	}
	return session.Title, session.TitleLocked, nil
}

// SetTitleIfEmpty 执行条件更新：仅当 title IS NULL 时写入。
// 返回是否真正写入了标题，两个并发首轮请求至多一个返回 true。
func (r *sessionRepository) SetTitleIfEmpty(ctx context.Context, tenantID, profileKey, sessionID, title string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND profile_key = ? AND title IS NULL", sessionID, tenantID, profileKey).
		Update("title", title)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetTitleUnlessLocked 为异步标题优化执行写入：被用户显式锁定的标题不覆盖。
func (r *sessionRepository) SetTitleUnlessLocked(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND profile_key = ? AND title_locked = ?", sessionID, tenantID, profileKey, false).
		Update("title", title).Error
}

// Rename 写入用户显式设置的标题并锁定，后台路径此后不再覆盖。
func (r *sessionRepository) Rename(ctx context.Context, tenantID, profileKey, sessionID, title string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND profile_key = ?", sessionID, tenantID, profileKey).
		Updates(map[string]interface{}{"title": title, "title_locked": true})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Owner 返回会话所属的 user_id；会话不存在时返回 ErrSessionNotFound。
func (r *sessionRepository) Owner(ctx context.Context, tenantID, profileKey, sessionID string) (string, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Select("user_id").
		Where("id = ? AND tenant_id = ? AND profile_key = ?", sessionID, tenantID, profileKey).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// LatestForUser 返回用户最近活跃的会话 ID，没有会话时返回空字符串。
func (r *sessionRepository) LatestForUser(ctx context.Context, tenantID, profileKey, userID string) (string, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Select("id").
		Where("tenant_id = ? AND profile_key = ? AND user_id = ?", tenantID, profileKey, userID).
		Order("COALESCE(last_activity_at, started_at) DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// ListForUser 按最近活跃时间倒序返回用户的会话。
func (r *sessionRepository) ListForUser(ctx context.Context, tenantID, profileKey, userID string, limit int) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_key = ? AND user_id = ?", tenantID, profileKey, userID).
		Order("COALESCE(last_activity_at, started_at) DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// Delete 在一个事务中删除会话及其全部消息。
func (r *sessionRepository) Delete(ctx context.Context, tenantID, profileKey, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND tenant_id = ? AND profile_key = ?", sessionID, tenantID, profileKey).
			Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND tenant_id = ? AND profile_key = ?", sessionID, tenantID, profileKey).
			Delete(&model.ChatSession{}).Error
	})
}
