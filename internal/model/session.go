// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatSession 对应数据库中的 'chat_sessions' 表。
// 一个会话由 (tenant, profile) 作用域与调用方 user_id 拥有。
type ChatSession struct {
	ID         string `gorm:"type:char(36);primaryKey" json:"sessionId"`
	TenantID   string `gorm:"type:varchar(128);not null;index:idx_sessions_scope" json:"tenantId"`
	ProfileKey string `gorm:"type:varchar(64);not null;index:idx_sessions_scope" json:"profileKey"`
	UserID     string `gorm:"type:varchar(128);not null;index" json:"userId"`
	ClientIP   string `gorm:"type:varchar(64)" json:"-"`
	UserAgent  string `gorm:"type:varchar(200)" json:"-"`
	// Title 为空表示尚未设置；TitleLocked 表示标题由用户显式设置，后台不得覆盖。
	Title          *string    `gorm:"type:varchar(120)" json:"title"`
	TitleLocked    bool       `gorm:"not null;default:false" json:"titleLocked"`
	StartedAt      time.Time  `gorm:"autoCreateTime" json:"startedAt"`
	LastActivityAt *time.Time `json:"lastActivityAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatSession) TableName() string {
	return "chat_sessions"
}
